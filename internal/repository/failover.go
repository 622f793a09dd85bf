package repository

import (
	"context"
	"sync/atomic"
	"time"

	"citas/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverSessionRepository пишет в основное хранилище, а при его отказе
// переключается на резервное. Восстановление пробуется раз в минуту.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

const recoveryInterval = time.Minute

func (r *FailoverSessionRepository) primaryUsable() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > recoveryInterval {
		// Даем основному хранилищу шанс восстановиться.
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, id string) (*domain.FlowSession, error) {
	if r.primaryUsable() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *domain.FlowSession) error {
	if r.primaryUsable() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			r.isDown.Store(false)
			// Дублируем в резерв, чтобы отказ основного не терял сессию.
			_ = r.fallback.SetSession(ctx, session)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, id string) error {
	if r.primaryUsable() {
		if err := r.primary.ClearSession(ctx, id); err != nil {
			r.markDown(err)
		} else {
			r.isDown.Store(false)
		}
	}
	// Чистим и резерв: он мог успеть получить копию.
	return r.fallback.ClearSession(ctx, id)
}
