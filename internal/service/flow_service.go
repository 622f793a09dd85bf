package service

import (
	"context"
	"errors"

	"citas/internal/domain"
	"citas/internal/models"
	"citas/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound — сессия формы не найдена или истекла.
var ErrSessionNotFound = errors.New("flow session not found")

// FlowUpdate — изменения черновика, применяемые перед переходом.
// nil-поле означает "не трогать".
type FlowUpdate struct {
	Auth     *domain.AuthArtifact
	Service  *string
	Modality *string
	Address  string
	Date     *string
	Time     *string
	Contact  *models.Contact
}

// FlowService управляет серверными сессиями пошаговой формы: на каждый
// запрос восстанавливает машину из хранилища, применяет действие и
// сохраняет снимок обратно.
type FlowService struct {
	sessions domain.SessionRepository
	busy     domain.BusySource
	sink     domain.BookingSink
	cfg      session.Config
	logger   *zerolog.Logger
}

func NewFlowService(
	sessions domain.SessionRepository,
	busy domain.BusySource,
	sink domain.BookingSink,
	cfg session.Config,
	logger *zerolog.Logger,
) *FlowService {
	return &FlowService{
		sessions: sessions,
		busy:     busy,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start создаёт новую сессию формы и сохраняет её начальное состояние.
func (s *FlowService) Start(ctx context.Context) (*domain.FlowSession, error) {
	machine := session.New(s.cfg, s.busy, s.sink, s.logger)
	snapshot := machine.Snapshot(uuid.NewString())
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Get возвращает текущее состояние сессии.
func (s *FlowService) Get(ctx context.Context, id string) (*domain.FlowSession, error) {
	stored, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrSessionNotFound
	}
	return stored, nil
}

// Next применяет изменения черновика и продвигает форму на шаг вперёд.
// Снимок сохраняется и при отказе валидатора: введённые значения
// не должны пропадать между запросами.
func (s *FlowService) Next(ctx context.Context, id string, upd FlowUpdate) (*domain.FlowSession, error) {
	machine, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(machine, upd)
	stepErr := machine.Next(ctx)

	snapshot := machine.Snapshot(id)
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, stepErr
}

// Prev отступает на шаг назад.
func (s *FlowService) Prev(ctx context.Context, id string) (*domain.FlowSession, error) {
	machine, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	machine.Prev()

	snapshot := machine.Snapshot(id)
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RefreshBusy перечитывает занятость выбранного дня.
func (s *FlowService) RefreshBusy(ctx context.Context, id string) (*domain.FlowSession, error) {
	machine, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	refreshErr := machine.RefreshBusy(ctx)

	snapshot := machine.Snapshot(id)
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, refreshErr
}

// Submit отправляет финальный черновик. Состояние сохраняется в обоих
// исходах: успех фиксирует submitted, отказ сохраняет черновик для
// повторной попытки.
func (s *FlowService) Submit(ctx context.Context, id string) (*domain.FlowSession, error) {
	machine, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	submitErr := machine.Submit(ctx)

	snapshot := machine.Snapshot(id)
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, submitErr
}

// Reset возвращает сессию к началу формы, сохраняя вход.
func (s *FlowService) Reset(ctx context.Context, id string) (*domain.FlowSession, error) {
	machine, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	machine.Reset()

	snapshot := machine.Snapshot(id)
	if err := s.sessions.SetSession(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Clear удаляет сессию из хранилища.
func (s *FlowService) Clear(ctx context.Context, id string) error {
	return s.sessions.ClearSession(ctx, id)
}

func (s *FlowService) load(ctx context.Context, id string) (*session.Machine, error) {
	stored, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrSessionNotFound
	}

	machine := session.New(s.cfg, s.busy, s.sink, s.logger)
	machine.Restore(stored)
	return machine, nil
}

func applyUpdate(m *session.Machine, upd FlowUpdate) {
	if upd.Auth != nil {
		m.SetAuth(*upd.Auth)
	}
	if upd.Service != nil {
		m.SelectService(*upd.Service)
	}
	if upd.Modality != nil {
		m.SelectModality(*upd.Modality, upd.Address)
	}
	if upd.Date != nil {
		m.SelectDate(*upd.Date)
	}
	if upd.Time != nil {
		m.SelectTime(*upd.Time)
	}
	if upd.Contact != nil {
		m.SetContact(upd.Contact.Name, upd.Contact.Email, upd.Contact.Phone)
	}
}
