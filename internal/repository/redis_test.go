package repository

import (
	"context"
	"testing"
	"time"

	"citas/internal/domain"
	"citas/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisSessionRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetSession", func(t *testing.T) {
		session := &domain.FlowSession{
			ID:   "abc-123",
			Step: "datetime",
			Draft: models.BookingDraft{
				Service:  "Consulta",
				Modality: models.ModalityRemote,
				Date:     "2026-09-04",
				Time:     "17:00",
			},
			RequestKey: "req-1",
		}

		err := repo.SetSession(ctx, session)
		require.NoError(t, err)

		got, err := repo.GetSession(ctx, "abc-123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, session.Step, got.Step)
		assert.Equal(t, session.Draft, got.Draft)
		assert.Equal(t, session.RequestKey, got.RequestKey)
	})

	t.Run("GetNonExistentSession", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearSession", func(t *testing.T) {
		session := &domain.FlowSession{ID: "to-clear", Step: "service"}
		require.NoError(t, repo.SetSession(ctx, session))

		err := repo.ClearSession(ctx, "to-clear")
		require.NoError(t, err)

		got, _ := repo.GetSession(ctx, "to-clear")
		assert.Nil(t, got)
	})

	t.Run("SessionExpires", func(t *testing.T) {
		short := NewRedisSessionRepository(client, time.Second)
		session := &domain.FlowSession{ID: "ephemeral", Step: "auth"}
		require.NoError(t, short.SetSession(ctx, session))

		s.FastForward(2 * time.Second)

		got, err := short.GetSession(ctx, "ephemeral")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSessionRepository(nil, time.Hour)
		_, err := repo.GetSession(ctx, "abc")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})
}
