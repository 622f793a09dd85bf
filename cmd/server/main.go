package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citas/internal/api"
	"citas/internal/config"
	"citas/internal/database"
	"citas/internal/domain"
	"citas/internal/events"
	"citas/internal/google"
	"citas/internal/logging"
	"citas/internal/metrics"
	"citas/internal/repository"
	"citas/internal/service"
	"citas/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	metrics.Register()

	loc := cfg.Location()
	db, err := database.NewDB(cfg.Database.Path, loc, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessionRepo := initSessionRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func(c *redis.Client) { _ = repository.Close(c) })(redisClient)
	}

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	calendarService := google.NewCalendarService(cfg.Google, loc, &logger)
	identity := google.NewIdentityService(cfg.Google.ClientID)

	bookingService := service.NewBookingService(
		db, calendarService, eventBus, loc, cfg.Booking.MaxAdvanceDays, &logger)
	flowService := service.NewFlowService(
		sessionRepo, bookingService, bookingService,
		session.Config{
			Services:    cfg.Services,
			Template:    cfg.WeeklyTemplate(),
			RequireAuth: cfg.Booking.RequireAuth,
			Location:    loc,
		},
		&logger,
	)

	server := api.NewHTTPServer(cfg, flowService, bookingService, identity, &logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

// initSessionRepository собирает хранилище сессий: Redis с памятью
// про запас; без Redis — только память.
func initSessionRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	ttl := time.Duration(cfg.Booking.SessionTTL) * time.Second
	memoryRepo := repository.NewMemorySessionRepository(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, memoryRepo
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	redisRepo := repository.NewRedisSessionRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverSessionRepository(redisRepo, memoryRepo, logger)
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	decode := func(ev *events.Event) (events.BookingEventPayload, error) {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			return err
		}
		logger.Info().
			Int64("booking_id", payload.BookingID).
			Str("date", payload.Date).
			Str("time", payload.Time).
			Str("service", payload.Service).
			Msg("booking created event")
		return nil
	})

	bus.Subscribe(events.EventBookingCalendarFailed, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			return err
		}
		logger.Warn().
			Int64("booking_id", payload.BookingID).
			Str("reason", payload.Reason).
			Msg("calendar event creation failed for booking")
		return nil
	})
}
