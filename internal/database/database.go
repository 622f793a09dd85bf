package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	// ErrNotAvailable — слот на выбранную дату и время уже занят.
	ErrNotAvailable = errors.New("slot is not available")

	// ErrPastDate — дата записи в прошлом.
	ErrPastDate = errors.New("booking date is in the past")

	// ErrDateTooFar — дата дальше разрешённого горизонта записи.
	ErrDateTooFar = errors.New("booking date is too far in the future")

	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("booking not found")
)

// DB — sqlite-хранилище подтверждённых записей. Дата и время хранятся
// как строки YYYY-MM-DD и HH:MM; loc задаёт зону, в которой из них
// собираются абсолютные интервалы.
type DB struct {
	db     *sql.DB
	loc    *time.Location
	logger *zerolog.Logger
}

func NewDB(path string, loc *time.Location, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite пишет из одного соединения; это же спасает :memory: в тестах
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, loc: loc, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица записей на приём
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            request_key TEXT UNIQUE NOT NULL,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            service TEXT NOT NULL,
            modality TEXT NOT NULL,
            address TEXT,
            status TEXT NOT NULL DEFAULT 'confirmed',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_request_key ON bookings(request_key)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// PingContext проверяет соединение.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
