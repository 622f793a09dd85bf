package domain

import (
	"context"
	"time"

	"citas/internal/models"
)

// BookingRepository хранит подтверждённые записи.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByRequestKey(ctx context.Context, key string) (*models.Booking, error)
	GetBusyIntervals(ctx context.Context, date string) ([]models.BusyInterval, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

// BusySource отдаёт занятые интервалы на дату YYYY-MM-DD.
// Когда записей нет, возвращает пустой список, а не ошибку.
type BusySource interface {
	BusyTimes(ctx context.Context, date string) ([]models.BusyInterval, error)
}

// BookingSink принимает финальный черновик и артефакт авторизации.
// Возвращаемая ошибка содержит текст, пригодный для показа пользователю.
type BookingSink interface {
	SubmitBooking(ctx context.Context, draft models.BookingDraft, auth AuthArtifact, requestKey string) error
}

// AuthArtifact — непрозрачные данные внешнего провайдера идентичности.
// Ядро проверяет только наличие токена, никогда его содержимое.
type AuthArtifact struct {
	IDToken             string
	CalendarAccessToken string
	UserID              string
	DisplayName         string
	Email               string
	PhotoURL            string
}

// Present сообщает, вошёл ли пользователь.
func (a AuthArtifact) Present() bool {
	return a.IDToken != ""
}

// Identity проверяет входящий токен и возвращает артефакт для префилла.
type Identity interface {
	Verify(ctx context.Context, bearer string) (AuthArtifact, error)
}

// CalendarWriter создаёт часовое событие в календаре клиента.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, booking *models.Booking, accessToken string) error
}

// FlowSession — сериализуемое состояние одной сессии пошаговой формы.
type FlowSession struct {
	ID         string                `json:"id"`
	Step       string                `json:"step"`
	Draft      models.BookingDraft   `json:"draft"`
	Auth       AuthArtifact          `json:"auth"`
	Busy       []models.BusyInterval `json:"busy,omitempty"`
	BusyStale  bool                  `json:"busy_stale,omitempty"`
	Submitted  bool                  `json:"submitted,omitempty"`
	RequestKey string                `json:"request_key,omitempty"`
}

// SessionRepository хранит состояние сессий формы по их идентификатору.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*FlowSession, error)
	SetSession(ctx context.Context, session *FlowSession) error
	ClearSession(ctx context.Context, id string) error
}

// EventPublisher публикует доменные события в общую шину.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
