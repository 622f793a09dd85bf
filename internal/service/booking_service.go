package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citas/internal/database"
	"citas/internal/domain"
	"citas/internal/events"
	"citas/internal/metrics"
	"citas/internal/models"
	"citas/internal/session"

	"github.com/rs/zerolog"
)

// BookingService принимает финальные черновики формы: проверяет дату,
// сохраняет запись, создаёт событие в календаре клиента и публикует
// доменное событие. Реализует domain.BookingSink и domain.BusySource.
type BookingService struct {
	repo           domain.BookingRepository
	calendar       domain.CalendarWriter
	eventBus       domain.EventPublisher
	loc            *time.Location
	maxAdvanceDays int
	logger         *zerolog.Logger
}

func NewBookingService(
	repo domain.BookingRepository,
	calendar domain.CalendarWriter,
	eventBus domain.EventPublisher,
	loc *time.Location,
	maxAdvanceDays int,
	logger *zerolog.Logger,
) *BookingService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &BookingService{
		repo:           repo,
		calendar:       calendar,
		eventBus:       eventBus,
		loc:            loc,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
	}
}

// ValidateBookingDate проверяет, что дата не в прошлом и не дальше
// разрешённого горизонта. Сравнение по календарным дням в зоне сервиса.
func (s *BookingService) ValidateBookingDate(date string) error {
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	now := time.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	if day.Before(today) {
		return database.ErrPastDate
	}
	if day.After(today.AddDate(0, 0, s.maxAdvanceDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// BusyTimes отдаёт занятые интервалы на дату.
func (s *BookingService) BusyTimes(ctx context.Context, date string) ([]models.BusyInterval, error) {
	intervals, err := s.repo.GetBusyIntervals(ctx, date)
	if err != nil {
		metrics.IncBusyFetchFailure()
		return nil, err
	}
	return intervals, nil
}

// SubmitBooking сохраняет запись и создаёт событие в календаре.
// Отказ календаря не откатывает запись: она уже подтверждена,
// а событие можно добавить вручную.
func (s *BookingService) SubmitBooking(ctx context.Context, draft models.BookingDraft, auth domain.AuthArtifact, requestKey string) error {
	booking := &models.Booking{
		RequestKey: requestKey,
		UserID:     auth.UserID,
		Name:       draft.Contact.Name,
		Email:      draft.Contact.Email,
		Phone:      draft.Contact.Phone,
		Date:       draft.Date,
		Time:       draft.Time,
		Service:    draft.Service,
		Modality:   draft.Modality,
		Address:    draft.Address,
		Status:     models.StatusConfirmed,
	}

	if err := s.ValidateBookingDate(booking.Date); err != nil {
		metrics.IncBookingFailure("invalid_date")
		return &session.SubmissionError{Message: dateErrorMessage(err), Err: err}
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			metrics.IncBookingFailure("slot_taken")
			return &session.SubmissionError{
				Message: "El horario seleccionado ya no está disponible.",
				Err:     err,
			}
		}
		metrics.IncBookingFailure("storage")
		s.logger.Error().Err(err).Str("request_key", requestKey).Msg("failed to persist booking")
		return &session.SubmissionError{Message: session.GenericSubmissionMessage, Err: err}
	}
	metrics.IncBookingCreated()

	s.createCalendarEvent(ctx, booking, auth)

	if err := s.eventBus.PublishJSON(events.EventBookingCreated, bookingPayload(booking, "")); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("failed to publish booking event")
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Str("service", booking.Service).
		Msg("booking created")
	return nil
}

func (s *BookingService) createCalendarEvent(ctx context.Context, booking *models.Booking, auth domain.AuthArtifact) {
	if s.calendar == nil || auth.CalendarAccessToken == "" {
		return
	}
	if err := s.calendar.CreateEvent(ctx, booking, auth.CalendarAccessToken); err != nil {
		metrics.IncCalendarFailure()
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to create calendar event")
		_ = s.eventBus.PublishJSON(events.EventBookingCalendarFailed, bookingPayload(booking, err.Error()))
	}
}

// GetBookingsByDateRange отдаёт записи диапазона для экспорта.
func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func dateErrorMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrPastDate):
		return "La fecha seleccionada ya pasó."
	case errors.Is(err, database.ErrDateTooFar):
		return "La fecha seleccionada está demasiado lejos."
	default:
		return session.GenericSubmissionMessage
	}
}

func bookingPayload(b *models.Booking, reason string) events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		Name:      b.Name,
		Email:     b.Email,
		Date:      b.Date,
		Time:      b.Time,
		Service:   b.Service,
		Modality:  b.Modality,
		Status:    b.Status,
		Reason:    reason,
	}
}
