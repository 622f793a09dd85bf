package repository

import (
	"context"
	"sync"
	"time"

	"citas/internal/domain"
)

type memoryEntry struct {
	session   *domain.FlowSession
	expiresAt time.Time
}

// MemorySessionRepository хранит сессии формы в памяти процесса.
// Используется в тестах и как резерв при недоступном Redis.
type MemorySessionRepository struct {
	sessions sync.Map
	ttl      time.Duration
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl}
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, id string) (*domain.FlowSession, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemorySessionRepository) SetSession(ctx context.Context, session *domain.FlowSession) error {
	r.sessions.Store(session.ID, memoryEntry{
		session:   session,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySessionRepository) ClearSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
