package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"citas/internal/models"

	"github.com/mattn/go-sqlite3"
)

// CreateBooking сохраняет запись. Слот и ключ идемпотентности
// проверяются внутри одной транзакции: два пользователя, которым обоим
// показали свободный слот, не смогут записаться на него одновременно,
// а повторная отправка с тем же request_key вернёт уже созданную запись.
func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Повторная отправка с тем же ключом: возвращаем уже созданную
	// запись как успех, ничего не вставляя.
	if existing, err := d.getBookingByRequestKeyTx(ctx, tx, booking.RequestKey); err == nil {
		*booking = *existing
		return tx.Commit()
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	// Проверяем занятость слота внутри транзакции
	var taken int
	queryCount := `SELECT COUNT(*) FROM bookings WHERE date = ? AND time = ? AND status != ?`
	err = tx.QueryRowContext(ctx, queryCount, booking.Date, booking.Time, models.StatusCancelled).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if taken > 0 {
		return ErrNotAvailable
	}

	now := time.Now()
	queryInsert := `INSERT INTO bookings (
				request_key, user_id, name, email, phone,
				date, time, service, modality, address, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.RequestKey,
		booking.UserID,
		booking.Name,
		booking.Email,
		booking.Phone,
		booking.Date,
		booking.Time,
		booking.Service,
		booking.Modality,
		booking.Address,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Гонка двух одинаковых ключей: запись уже есть.
			if existing, lookupErr := d.getBookingByRequestKeyTx(ctx, tx, booking.RequestKey); lookupErr == nil {
				*booking = *existing
				return tx.Commit()
			}
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const bookingColumns = `id, request_key, user_id, name, email, phone, date, time, service, modality, address, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var address sql.NullString
	err := row.Scan(
		&b.ID, &b.RequestKey, &b.UserID, &b.Name, &b.Email, &b.Phone,
		&b.Date, &b.Time, &b.Service, &b.Modality, &address, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Address = address.String
	return &b, nil
}

func (d *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (d *DB) GetBookingByRequestKey(ctx context.Context, key string) (*models.Booking, error) {
	b, err := d.getBookingByRequestKeyTx(ctx, nil, key)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *DB) getBookingByRequestKeyTx(ctx context.Context, tx *sql.Tx, key string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE request_key = ?`
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, key)
	} else {
		row = d.db.QueryRowContext(ctx, query, key)
	}
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by request key: %w", err)
	}
	return b, nil
}

// GetBusyIntervals возвращает занятые интервалы даты: [начало, начало+1ч)
// для каждой неотменённой записи, в порядке времени начала. Пустой срез,
// а не ошибка, если записей нет.
func (d *DB) GetBusyIntervals(ctx context.Context, date string) ([]models.BusyInterval, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, d.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	query := `SELECT time FROM bookings WHERE date = ? AND status != ? ORDER BY time`
	rows, err := d.db.QueryContext(ctx, query, date, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query busy intervals: %w", err)
	}
	defer rows.Close()

	intervals := make([]models.BusyInterval, 0)
	for rows.Next() {
		var hhmm string
		if err := rows.Scan(&hhmm); err != nil {
			return nil, fmt.Errorf("failed to scan busy interval: %w", err)
		}
		t, err := time.Parse(models.TimeLayout, hhmm)
		if err != nil {
			d.logger.Warn().Str("time", hhmm).Str("date", date).Msg("skipping booking with malformed time")
			continue
		}
		start := day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		intervals = append(intervals, models.BusyInterval{
			Start: start,
			End:   start.Add(models.SlotDurationMinutes * time.Minute),
		})
	}
	return intervals, rows.Err()
}

// GetBookingsByDateRange возвращает записи в диапазоне дат включительно.
func (d *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE date >= ? AND date <= ? ORDER BY date, time`
	rows, err := d.db.QueryContext(ctx, query,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings by range: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
