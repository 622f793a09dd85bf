// Package session реализует пошаговую форму записи: линейную цепочку
// шагов с валидатором на каждом переходе вперёд и черновиком брони,
// который накапливает выбор пользователя до финальной отправки.
package session

import (
	"context"
	"strings"
	"time"

	"citas/internal/domain"
	"citas/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Step — шаг формы.
type Step string

const (
	StepAuth     Step = "auth"
	StepService  Step = "service"
	StepModality Step = "modality"
	StepDateTime Step = "datetime"
	StepContact  Step = "contact"
	StepSummary  Step = "summary"
)

// Config — неизменяемые параметры формы.
type Config struct {
	// Services — список предлагаемых услуг; пустой список отключает проверку.
	Services []string
	// Template — недельное расписание приёма.
	Template models.WeeklyTemplate
	// RequireAuth определяет, начинается ли форма с шага входа.
	RequireAuth bool
	// Location — зона, в которой трактуются даты формы.
	Location *time.Location
	// Now подменяется в тестах; по умолчанию time.Now.
	Now func() time.Time
}

// Machine держит состояние одной сессии формы. Не потокобезопасна:
// одна сессия обслуживает одного пользователя, события приходят по одному.
type Machine struct {
	cfg        Config
	busySource domain.BusySource
	sink       domain.BookingSink
	logger     *zerolog.Logger

	steps      []Step
	idx        int
	draft      models.BookingDraft
	auth       domain.AuthArtifact
	busy       []models.BusyInterval
	busyStale  bool
	summary    *models.BookingDraft
	requestKey string
	inFlight   bool
	submitted  bool
}

// New создаёт машину в начальном шаге с пустым черновиком.
func New(cfg Config, busySource domain.BusySource, sink domain.BookingSink, logger *zerolog.Logger) *Machine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	steps := []Step{StepService, StepModality, StepDateTime, StepContact, StepSummary}
	if cfg.RequireAuth {
		steps = append([]Step{StepAuth}, steps...)
	}
	return &Machine{
		cfg:        cfg,
		busySource: busySource,
		sink:       sink,
		logger:     logger,
		steps:      steps,
		requestKey: uuid.NewString(),
	}
}

// Current возвращает текущий шаг.
func (m *Machine) Current() Step {
	return m.steps[m.idx]
}

// Draft возвращает копию черновика.
func (m *Machine) Draft() models.BookingDraft {
	return m.draft
}

// Summary возвращает снимок черновика, сделанный при входе на последний
// шаг, либо nil, если пользователь до него не дошёл.
func (m *Machine) Summary() *models.BookingDraft {
	if m.summary == nil {
		return nil
	}
	snapshot := *m.summary
	return &snapshot
}

// BusyStale сообщает, что последняя загрузка занятости провалилась и
// слоты показаны так, будто занятых интервалов нет.
func (m *Machine) BusyStale() bool {
	return m.busyStale
}

// Submitted сообщает, была ли заявка этой сессии уже отправлена.
func (m *Machine) Submitted() bool {
	return m.submitted
}

// RequestKey — клиентский ключ идемпотентности этой сессии.
func (m *Machine) RequestKey() string {
	return m.requestKey
}

// SetAuth сохраняет артефакт входа и префиллит контактные данные,
// не затирая то, что пользователь уже ввёл сам.
func (m *Machine) SetAuth(a domain.AuthArtifact) {
	m.auth = a
	if m.draft.Contact.Name == "" {
		m.draft.Contact.Name = a.DisplayName
	}
	if m.draft.Contact.Email == "" {
		m.draft.Contact.Email = a.Email
	}
}

// SelectService записывает выбранную услугу.
func (m *Machine) SelectService(service string) {
	m.draft.Service = strings.TrimSpace(service)
}

// SelectModality записывает модальность; адрес имеет смысл только
// для очного приёма и затирается для остальных.
func (m *Machine) SelectModality(modality, address string) {
	m.draft.Modality = modality
	if modality == models.ModalityInPerson {
		m.draft.Address = address
	} else {
		m.draft.Address = ""
	}
}

// SelectDate записывает дату и сбрасывает ранее выбранное время:
// слоты другого дня к нему не относятся.
func (m *Machine) SelectDate(date string) {
	m.draft.Date = date
	m.draft.Time = ""
}

// SelectTime записывает время слота.
func (m *Machine) SelectTime(hhmm string) {
	m.draft.Time = hhmm
}

// SetContact записывает контактные данные.
func (m *Machine) SetContact(name, email, phone string) {
	m.draft.Contact = models.Contact{Name: name, Email: email, Phone: phone}
}

// Busy возвращает последний загруженный набор занятых интервалов.
func (m *Machine) Busy() []models.BusyInterval {
	return m.busy
}

// Next продвигает форму на шаг вперёд, если валидатор текущего шага
// проходит. При отказе шаг не меняется и возвращается причина.
// На последнем шаге Next ничего не делает.
func (m *Machine) Next(ctx context.Context) error {
	if m.idx == len(m.steps)-1 {
		return nil
	}
	if err := m.validate(m.Current()); err != nil {
		return err
	}

	m.idx++
	switch m.Current() {
	case StepDateTime:
		m.refreshBusy(ctx)
	case StepSummary:
		snapshot := m.draft
		m.summary = &snapshot
	}
	return nil
}

// Prev отступает на шаг назад без валидации. На первом шаге — no-op.
func (m *Machine) Prev() {
	if m.idx > 0 {
		m.idx--
	}
}

// RefreshBusy перечитывает занятость выбранного дня (смена месяца или
// дня в календаре). Ошибку источника форма переживает: набор считается
// пустым, слоты показываются открытыми, предупреждение фиксируется.
func (m *Machine) RefreshBusy(ctx context.Context) error {
	return m.refreshBusy(ctx)
}

func (m *Machine) refreshBusy(ctx context.Context) error {
	if m.inFlight {
		return ErrBusy
	}
	m.inFlight = true
	defer func() { m.inFlight = false }()

	date := m.draft.Date
	if date == "" {
		date = m.cfg.Now().In(m.location()).Format(models.DateLayout)
	}

	busy, err := m.busySource.BusyTimes(ctx, date)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn().Err(err).Str("date", date).Msg("busy times fetch failed, treating day as free")
		}
		m.busy = nil
		m.busyStale = true
		return nil
	}
	m.busy = busy
	m.busyStale = false
	return nil
}

// Submit отправляет финальный черновик во внешний приёмник. Разрешён
// только с последнего шага и ровно один раз; повторные клики до
// завершения отклоняются. При отказе приёмника черновик сохраняется,
// чтобы пользователь мог повторить без повторного ввода.
func (m *Machine) Submit(ctx context.Context) error {
	if m.Current() != StepSummary {
		return ErrNotAtSummary
	}
	if m.submitted {
		return ErrAlreadySubmitted
	}
	if m.inFlight {
		return ErrBusy
	}
	if m.cfg.RequireAuth && !m.auth.Present() {
		return ErrAuthRequired
	}

	m.inFlight = true
	defer func() { m.inFlight = false }()

	// Финальная перепроверка свежести: слот могли занять, пока
	// пользователь разглядывал сводку.
	if busy, err := m.busySource.BusyTimes(ctx, m.draft.Date); err == nil {
		m.busy = busy
		m.busyStale = false
		if !m.slotStillBookable() {
			return &ValidationError{Step: StepDateTime, Reason: "El horario seleccionado ya no está disponible."}
		}
	}

	if err := m.sink.SubmitBooking(ctx, m.draft, m.auth, m.requestKey); err != nil {
		if m.logger != nil {
			m.logger.Error().Err(err).Msg("booking submission failed")
		}
		return err
	}

	m.submitted = true
	return nil
}

// Reset возвращает форму в начальное состояние: пустой черновик,
// первый шаг, новый ключ идемпотентности. Артефакт входа сохраняется —
// закрытие модального окна не разлогинивает пользователя.
func (m *Machine) Reset() {
	m.idx = 0
	m.draft = models.BookingDraft{}
	m.busy = nil
	m.busyStale = false
	m.summary = nil
	m.submitted = false
	m.inFlight = false
	m.requestKey = uuid.NewString()
	if m.auth.Present() {
		m.draft.Contact.Name = m.auth.DisplayName
		m.draft.Contact.Email = m.auth.Email
	}
}

// Snapshot сериализует состояние машины для внешнего хранилища сессий.
func (m *Machine) Snapshot(id string) *domain.FlowSession {
	return &domain.FlowSession{
		ID:         id,
		Step:       string(m.Current()),
		Draft:      m.draft,
		Auth:       m.auth,
		Busy:       m.busy,
		BusyStale:  m.busyStale,
		Submitted:  m.submitted,
		RequestKey: m.requestKey,
	}
}

// Restore восстанавливает машину из сохранённой сессии. Неизвестный шаг
// откатывает на начало — сломанная сессия не должна ронять форму.
func (m *Machine) Restore(s *domain.FlowSession) {
	m.draft = s.Draft
	m.auth = s.Auth
	m.busy = s.Busy
	m.busyStale = s.BusyStale
	m.submitted = s.Submitted
	if s.RequestKey != "" {
		m.requestKey = s.RequestKey
	}
	m.idx = 0
	for i, step := range m.steps {
		if string(step) == s.Step {
			m.idx = i
			break
		}
	}
	if m.Current() == StepSummary {
		snapshot := m.draft
		m.summary = &snapshot
	}
}
