package session

import (
	"regexp"
	"strings"
	"time"

	"citas/internal/availability"
	"citas/internal/models"
)

// emailPattern — тот же шаблон, что проверяет фронтенд.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (m *Machine) fail(step Step, reason string) *ValidationError {
	return &ValidationError{Step: step, Reason: reason}
}

// validate прогоняет валидатор шага над текущим черновиком.
// nil — шаг пройден.
func (m *Machine) validate(step Step) *ValidationError {
	switch step {
	case StepAuth:
		if !m.auth.Present() {
			return m.fail(step, "Por favor, inicia sesión para agendar una cita.")
		}
	case StepService:
		if m.draft.Service == "" || !m.serviceOffered(m.draft.Service) {
			return m.fail(step, "Selecciona un servicio.")
		}
	case StepModality:
		switch m.draft.Modality {
		case models.ModalityRemote:
		case models.ModalityInPerson:
			if strings.TrimSpace(m.draft.Address) == "" {
				return m.fail(step, "Ingresa una dirección para la modalidad presencial.")
			}
		default:
			return m.fail(step, "Selecciona una modalidad.")
		}
	case StepDateTime:
		if m.draft.Date == "" || m.draft.Time == "" {
			return m.fail(step, "Selecciona una fecha y hora.")
		}
		if !m.slotStillBookable() {
			return m.fail(step, "El horario seleccionado ya no está disponible.")
		}
	case StepContact:
		c := m.draft.Contact
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Phone) == "" {
			return m.fail(step, "Completa todos los campos.")
		}
		if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
			return m.fail(step, "Ingresa un correo electrónico válido.")
		}
	case StepSummary:
		// Шаг просмотра, проверять нечего.
	}
	return nil
}

func (m *Machine) serviceOffered(name string) bool {
	if len(m.cfg.Services) == 0 {
		return true
	}
	for _, s := range m.cfg.Services {
		if s == name {
			return true
		}
	}
	return false
}

// slotStillBookable перепроверяет выбранный слот против последнего
// известного набора занятых интервалов. Закрывает гонку между отрисовкой
// и подтверждением: слот могли занять, пока пользователь заполнял форму.
func (m *Machine) slotStillBookable() bool {
	date, err := time.ParseInLocation(models.DateLayout, m.draft.Date, m.location())
	if err != nil {
		return false
	}
	for _, slot := range availability.DaySlots(date, m.cfg.Template, m.busy) {
		if slot.Time == m.draft.Time {
			return slot.Bookable
		}
	}
	return false
}

func (m *Machine) location() *time.Location {
	if m.cfg.Location != nil {
		return m.cfg.Location
	}
	return time.Local
}
