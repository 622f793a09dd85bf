package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"citas/internal/domain"
	"citas/internal/models"
	"citas/internal/service"
	"citas/internal/session"

	"github.com/gorilla/mux"
)

// sessionView — состояние сессии, отдаваемое клиенту. Токены из
// артефакта входа наружу не возвращаются.
type sessionView struct {
	ID            string                `json:"id"`
	Step          string                `json:"step"`
	Draft         models.BookingDraft   `json:"draft"`
	Busy          []models.BusyInterval `json:"busy"`
	BusyStale     bool                  `json:"busy_stale"`
	Submitted     bool                  `json:"submitted"`
	Authenticated bool                  `json:"authenticated"`
	User          *sessionUser          `json:"user,omitempty"`
}

type sessionUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

func viewOf(s *domain.FlowSession) sessionView {
	view := sessionView{
		ID:            s.ID,
		Step:          s.Step,
		Draft:         s.Draft,
		Busy:          s.Busy,
		BusyStale:     s.BusyStale,
		Submitted:     s.Submitted,
		Authenticated: s.Auth.Present(),
	}
	if s.Auth.Present() {
		view.User = &sessionUser{
			Name:     s.Auth.DisplayName,
			Email:    s.Auth.Email,
			PhotoURL: s.Auth.PhotoURL,
		}
	}
	return view
}

type flowUpdateRequest struct {
	Service  *string         `json:"service"`
	Modality *string         `json:"modality"`
	Address  string          `json:"address"`
	Date     *string         `json:"date"`
	Time     *string         `json:"time"`
	Contact  *models.Contact `json:"contact"`
}

func (s *HTTPServer) handleFlowStart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flows.Start(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to start flow session")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": viewOf(snap)})
}

func (s *HTTPServer) handleFlowGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flows.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

func (s *HTTPServer) handleFlowNext(w http.ResponseWriter, r *http.Request) {
	var req flowUpdateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	upd := service.FlowUpdate{
		Service:  req.Service,
		Modality: req.Modality,
		Address:  req.Address,
		Date:     req.Date,
		Time:     req.Time,
		Contact:  req.Contact,
	}

	// Вход подтверждается заголовком, не телом: токен не должен
	// оседать в черновике.
	if bearer := strings.TrimSpace(r.Header.Get("Authorization")); bearer != "" && s.identity != nil {
		auth, err := s.identity.Verify(r.Context(), bearer)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if token := strings.TrimSpace(r.Header.Get("X-Calendar-Token")); token != "" {
			auth.CalendarAccessToken = token
		}
		upd.Auth = &auth
	}

	snap, err := s.flows.Next(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

func (s *HTTPServer) handleFlowPrev(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flows.Prev(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

func (s *HTTPServer) handleFlowRefreshBusy(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flows.RefreshBusy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

func (s *HTTPServer) handleFlowSubmit(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flows.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

// handleFlowReset сбрасывает форму к началу; ?drop=true удаляет сессию
// целиком.
func (s *HTTPServer) handleFlowReset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if r.URL.Query().Get("drop") == "true" {
		if err := s.flows.Clear(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to drop session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	snap, err := s.flows.Reset(r.Context(), id)
	if err != nil {
		s.writeFlowError(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(snap)})
}

// writeFlowError переводит ошибки машины шагов в HTTP-статусы.
// Снимок сессии прикладывается, когда он есть: клиент продолжает
// рисовать форму и при отказе.
func (s *HTTPServer) writeFlowError(w http.ResponseWriter, snap *domain.FlowSession, err error) {
	payload := map[string]any{}
	if snap != nil {
		payload["session"] = viewOf(snap)
	}

	var valErr *session.ValidationError
	var subErr *session.SubmissionError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.As(err, &valErr):
		payload["error"] = valErr.Reason
		payload["step"] = string(valErr.Step)
		writeJSON(w, http.StatusUnprocessableEntity, payload)
	case errors.Is(err, session.ErrAuthRequired):
		payload["error"] = "auth required"
		writeJSON(w, http.StatusUnauthorized, payload)
	case errors.Is(err, session.ErrNotAtSummary),
		errors.Is(err, session.ErrAlreadySubmitted),
		errors.Is(err, session.ErrBusy):
		payload["error"] = err.Error()
		writeJSON(w, http.StatusConflict, payload)
	case errors.As(err, &subErr):
		payload["error"] = subErr.Message
		writeJSON(w, http.StatusBadGateway, payload)
	default:
		s.logger.Error().Err(err).Msg("flow operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
