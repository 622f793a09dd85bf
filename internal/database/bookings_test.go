package database

import (
	"context"
	"testing"
	"time"

	"citas/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", time.UTC, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBooking(key string) *models.Booking {
	return &models.Booking{
		RequestKey: key,
		UserID:     "uid-1",
		Name:       "Ana Soto",
		Email:      "ana@example.com",
		Phone:      "+56911112222",
		Date:       "2025-09-04",
		Time:       "17:00",
		Service:    "Terapia individual",
		Modality:   models.ModalityRemote,
		Status:     models.StatusConfirmed,
	}
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("key-1")
	require.NoError(t, db.CreateBooking(ctx, booking))
	assert.NotZero(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Soto", got.Name)
	assert.Equal(t, "17:00", got.Time)
}

func TestCreateBookingSlotConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBooking(ctx, testBooking("key-1")))

	// Тот же слот, другой пользователь — отказ.
	second := testBooking("key-2")
	second.Name = "Pedro Rojas"
	assert.ErrorIs(t, db.CreateBooking(ctx, second), ErrNotAvailable)

	// Другой час того же дня проходит.
	third := testBooking("key-3")
	third.Time = "18:00"
	assert.NoError(t, db.CreateBooking(ctx, third))
}

func TestCreateBookingCancelledSlotReleased(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testBooking("key-1")
	first.Status = models.StatusCancelled
	require.NoError(t, db.CreateBooking(ctx, first))

	// Отменённая запись не держит слот.
	assert.NoError(t, db.CreateBooking(ctx, testBooking("key-2")))
}

func TestCreateBookingIdempotentByRequestKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testBooking("dup-key")
	require.NoError(t, db.CreateBooking(ctx, first))

	// Повторная отправка того же ключа не создаёт дубликат: слот уже
	// занят первой вставкой, но та же заявка возвращается как успех.
	retry := testBooking("dup-key")
	require.NoError(t, db.CreateBooking(ctx, retry))
	assert.Equal(t, first.ID, retry.ID)

	bookings, err := db.GetBookingsByDateRange(ctx,
		time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestGetBookingNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetBooking(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBusyIntervals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("EmptyForFreeDay", func(t *testing.T) {
		intervals, err := db.GetBusyIntervals(ctx, "2025-09-04")
		require.NoError(t, err)
		assert.NotNil(t, intervals)
		assert.Empty(t, intervals)
	})

	t.Run("HourIntervalsPerBooking", func(t *testing.T) {
		require.NoError(t, db.CreateBooking(ctx, testBooking("key-1")))
		b := testBooking("key-2")
		b.Time = "16:00"
		require.NoError(t, db.CreateBooking(ctx, b))

		intervals, err := db.GetBusyIntervals(ctx, "2025-09-04")
		require.NoError(t, err)
		require.Len(t, intervals, 2)

		// Отсортированы по началу, каждый ровно час.
		assert.Equal(t, time.Date(2025, 9, 4, 16, 0, 0, 0, time.UTC), intervals[0].Start)
		assert.Equal(t, time.Date(2025, 9, 4, 17, 0, 0, 0, time.UTC), intervals[0].End)
		assert.Equal(t, time.Date(2025, 9, 4, 17, 0, 0, 0, time.UTC), intervals[1].Start)
		assert.Equal(t, time.Date(2025, 9, 4, 18, 0, 0, 0, time.UTC), intervals[1].End)
	})

	t.Run("CancelledExcluded", func(t *testing.T) {
		c := testBooking("key-4")
		c.Date = "2025-09-05"
		c.Status = models.StatusCancelled
		require.NoError(t, db.CreateBooking(ctx, c))

		intervals, err := db.GetBusyIntervals(ctx, "2025-09-05")
		require.NoError(t, err)
		assert.Empty(t, intervals)
	})

	t.Run("BadDate", func(t *testing.T) {
		_, err := db.GetBusyIntervals(ctx, "04-09-2025")
		assert.Error(t, err)
	})
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	dates := []string{"2025-09-01", "2025-09-04", "2025-09-08"}
	for _, d := range dates {
		b := testBooking("key-" + d)
		b.Date = d
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	got, err := db.GetBookingsByDateRange(ctx,
		time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-09-04", got[0].Date)
	assert.Equal(t, "2025-09-08", got[1].Date)
}
