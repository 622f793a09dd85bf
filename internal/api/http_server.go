package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"citas/internal/config"
	"citas/internal/domain"
	"citas/internal/models"
	"citas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer — публичный API виджета записи: слоты, календарь,
// пошаговая форма и прямое создание записи.
type HTTPServer struct {
	cfg      config.ServerConfig
	flows    *service.FlowService
	bookings *service.BookingService
	identity domain.Identity
	template models.WeeklyTemplate
	services []string
	loc      *time.Location
	logger   *zerolog.Logger
	validate *validator.Validate
	server   *http.Server
}

func NewHTTPServer(
	cfg *config.Config,
	flows *service.FlowService,
	bookings *service.BookingService,
	identity domain.Identity,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg.Server,
		flows:    flows,
		bookings: bookings,
		identity: identity,
		template: cfg.WeeklyTemplate(),
		services: cfg.Services,
		loc:      cfg.Location(),
		logger:   logger,
		validate: validator.New(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)
	if cfg.Monitoring.PrometheusEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/available-slots", srv.handleAvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/calendar", srv.handleCalendar).Methods(http.MethodGet)
	api.HandleFunc("/book", srv.handleBook).Methods(http.MethodPost)
	api.HandleFunc("/export", srv.handleExport).Methods(http.MethodGet)

	api.HandleFunc("/flow", srv.handleFlowStart).Methods(http.MethodPost)
	api.HandleFunc("/flow/{id}", srv.handleFlowGet).Methods(http.MethodGet)
	api.HandleFunc("/flow/{id}", srv.handleFlowReset).Methods(http.MethodDelete)
	api.HandleFunc("/flow/{id}/next", srv.handleFlowNext).Methods(http.MethodPost)
	api.HandleFunc("/flow/{id}/prev", srv.handleFlowPrev).Methods(http.MethodPost)
	api.HandleFunc("/flow/{id}/busy", srv.handleFlowRefreshBusy).Methods(http.MethodPost)
	api.HandleFunc("/flow/{id}/submit", srv.handleFlowSubmit).Methods(http.MethodPost)

	limiter := newRateLimiter(cfg.Server.RateLimit)
	handler := corsMiddleware(cfg.Server.AllowedOrigins,
		loggingMiddleware(logger,
			limiter.Wrap(r)))

	srv.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return srv
}

// Handler возвращает корневой обработчик. Используется в тестах.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
