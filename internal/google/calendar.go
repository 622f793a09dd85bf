package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"citas/internal/config"
	"citas/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService создаёт события в календаре клиента от его имени:
// используется access token пользователя, а не сервисный аккаунт,
// поэтому событие появляется в личном календаре записавшегося.
type CalendarService struct {
	calendarID string
	timezone   string
	loc        *time.Location
	logger     *zerolog.Logger
}

func NewCalendarService(cfg config.GoogleConfig, loc *time.Location, logger *zerolog.Logger) *CalendarService {
	return &CalendarService{
		calendarID: cfg.CalendarID,
		timezone:   cfg.Timezone,
		loc:        loc,
		logger:     logger,
	}
}

// CreateEvent создаёт часовое событие записи. Сервис собирается на
// каждый вызов: токен у каждого пользователя свой.
func (s *CalendarService) CreateEvent(ctx context.Context, booking *models.Booking, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("calendar access token is empty")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	srv, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return fmt.Errorf("unable to create Calendar service: %v", err)
	}

	event, err := buildEvent(booking, s.timezone, s.loc)
	if err != nil {
		return err
	}

	created, err := srv.Events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to insert calendar event: %v", err)
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("event_id", created.Id).
		Msg("calendar event created")
	return nil
}

// buildEvent собирает событие из записи: название "{услуга} con {имя}",
// начало в заданной зоне, длительность один час.
func buildEvent(booking *models.Booking, timezone string, loc *time.Location) (*calendar.Event, error) {
	start, err := time.ParseInLocation(
		models.DateLayout+" "+models.TimeLayout,
		booking.Date+" "+booking.Time,
		loc,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid booking date/time: %v", err)
	}
	end := start.Add(models.SlotDurationMinutes * time.Minute)

	return &calendar.Event{
		Summary:     fmt.Sprintf("%s con %s", booking.Service, booking.Name),
		Description: buildDescription(booking),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: timezone,
		},
	}, nil
}

func buildDescription(booking *models.Booking) string {
	lines := []string{
		"Servicio: " + booking.Service,
		"Modalidad: " + modalityLabel(booking.Modality),
	}
	if booking.Modality == models.ModalityInPerson && booking.Address != "" {
		lines = append(lines, "Dirección: "+booking.Address)
	}
	lines = append(lines,
		"Nombre: "+booking.Name,
		"Email: "+booking.Email,
		"Teléfono: "+booking.Phone,
	)
	return strings.Join(lines, "\n")
}

func modalityLabel(modality string) string {
	switch modality {
	case models.ModalityInPerson:
		return "Presencial"
	case models.ModalityRemote:
		return "Online"
	default:
		return modality
	}
}
