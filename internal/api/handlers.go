package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"citas/internal/availability"
	"citas/internal/database"
	"citas/internal/domain"
	"citas/internal/models"
	"citas/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAvailableSlots отдаёт занятые интервалы даты. Клиент сам
// вычитает их из номинального расписания.
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	fecha := strings.TrimSpace(r.URL.Query().Get("fecha"))
	if fecha == "" {
		writeError(w, http.StatusBadRequest, "fecha is required")
		return
	}
	if _, err := time.Parse(models.DateLayout, fecha); err != nil {
		writeError(w, http.StatusBadRequest, "invalid fecha format; expected YYYY-MM-DD")
		return
	}

	busy, err := s.bookings.BusyTimes(r.Context(), fecha)
	if err != nil {
		s.logger.Error().Err(err).Str("fecha", fecha).Msg("failed to load busy times")
		writeError(w, http.StatusInternalServerError, "failed to load busy times")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"busyTimes": busy})
}

// handleCalendar отдаёт сетку месяца для календаря виджета.
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	year := now.Year()
	month := int(now.Month())

	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = v
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = v
	}
	if year < now.Year()-1 || year > now.Year()+2 {
		writeError(w, http.StatusBadRequest, "year is out of range")
		return
	}

	days := availability.CalendarDays(year, time.Month(month), s.template, now)
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"days":  days,
	})
}

type bookRequest struct {
	Nombre        string `json:"nombre" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Telefono      string `json:"telefono" validate:"required"`
	Fecha         string `json:"fecha" validate:"required,datetime=2006-01-02"`
	Hora          string `json:"hora" validate:"required,datetime=15:04"`
	Servicio      string `json:"servicio" validate:"required"`
	Modalidad     string `json:"modalidad" validate:"omitempty,oneof=Remote InPerson"`
	Direccion     string `json:"direccion"`
	RequestKey    string `json:"request_key"`
	CalendarToken string `json:"calendar_token"`
}

// handleBook — прямое создание записи без пошаговой сессии.
// Конфликт слота разрешается транзакцией хранилища.
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	if req.Modalidad == "" {
		req.Modalidad = models.ModalityRemote
	}
	if !s.serviceOffered(req.Servicio) {
		writeError(w, http.StatusUnprocessableEntity, "El servicio seleccionado no está disponible.")
		return
	}
	if !s.slotInTemplate(req.Fecha, req.Hora) {
		writeError(w, http.StatusUnprocessableEntity, "El horario está fuera del horario de atención.")
		return
	}

	auth, ok := s.authFromRequest(w, r)
	if !ok {
		return
	}
	auth.CalendarAccessToken = req.CalendarToken

	requestKey := req.RequestKey
	if requestKey == "" {
		requestKey = uuid.NewString()
	}

	draft := models.BookingDraft{
		Service:  req.Servicio,
		Modality: req.Modalidad,
		Address:  req.Direccion,
		Date:     req.Fecha,
		Time:     req.Hora,
		Contact: models.Contact{
			Name:  req.Nombre,
			Email: req.Email,
			Phone: req.Telefono,
		},
	}

	if err := s.bookings.SubmitBooking(r.Context(), draft, auth, requestKey); err != nil {
		s.writeSubmissionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":      models.StatusConfirmed,
		"request_key": requestKey,
	})
}

func (s *HTTPServer) serviceOffered(name string) bool {
	if len(s.services) == 0 {
		return true
	}
	for _, svc := range s.services {
		if svc == name {
			return true
		}
	}
	return false
}

// slotInTemplate проверяет, что время входит в расписание дня недели.
func (s *HTTPServer) slotInTemplate(fecha, hora string) bool {
	date, err := time.ParseInLocation(models.DateLayout, fecha, s.loc)
	if err != nil {
		return false
	}
	for _, slot := range s.template.SlotTimes(availability.ISOWeekday(date)) {
		if slot == hora {
			return true
		}
	}
	return false
}

// authFromRequest проверяет Authorization, если он прислан. Отсутствие
// заголовка даёт анонимный артефакт; невалидный токен — отказ.
func (s *HTTPServer) authFromRequest(w http.ResponseWriter, r *http.Request) (domain.AuthArtifact, bool) {
	bearer := strings.TrimSpace(r.Header.Get("Authorization"))
	if bearer == "" || s.identity == nil {
		return domain.AuthArtifact{}, true
	}

	auth, err := s.identity.Verify(r.Context(), bearer)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return domain.AuthArtifact{}, false
	}
	if token := strings.TrimSpace(r.Header.Get("X-Calendar-Token")); token != "" {
		auth.CalendarAccessToken = token
	}
	return auth, true
}

func (s *HTTPServer) writeSubmissionError(w http.ResponseWriter, err error) {
	var subErr *session.SubmissionError
	if errors.As(err, &subErr) {
		switch {
		case errors.Is(err, database.ErrNotAvailable):
			writeError(w, http.StatusConflict, subErr.Message)
		case errors.Is(err, database.ErrPastDate), errors.Is(err, database.ErrDateTooFar):
			writeError(w, http.StatusUnprocessableEntity, subErr.Message)
		default:
			writeError(w, http.StatusBadGateway, subErr.Message)
		}
		return
	}
	writeError(w, http.StatusInternalServerError, session.GenericSubmissionMessage)
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return "invalid field: " + strings.ToLower(fieldErrs[0].Field())
	}
	return "invalid request"
}
