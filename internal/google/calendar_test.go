package google

import (
	"context"
	"testing"
	"time"

	"citas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	return loc
}

func TestBuildEvent(t *testing.T) {
	loc := santiago(t)
	booking := &models.Booking{
		Name:     "Carolina Rojas",
		Email:    "carolina@example.com",
		Phone:    "+56911112222",
		Date:     "2026-09-04",
		Time:     "17:00",
		Service:  "Consulta inicial",
		Modality: models.ModalityInPerson,
		Address:  "Av. Providencia 1234",
	}

	event, err := buildEvent(booking, "America/Santiago", loc)
	require.NoError(t, err)

	assert.Equal(t, "Consulta inicial con Carolina Rojas", event.Summary)
	assert.Equal(t, "America/Santiago", event.Start.TimeZone)
	assert.Equal(t, "America/Santiago", event.End.TimeZone)

	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 4, 17, 0, 0, 0, loc).Unix(), start.Unix())
	assert.Equal(t, time.Hour, end.Sub(start))

	assert.Contains(t, event.Description, "Servicio: Consulta inicial")
	assert.Contains(t, event.Description, "Modalidad: Presencial")
	assert.Contains(t, event.Description, "Dirección: Av. Providencia 1234")
	assert.Contains(t, event.Description, "Email: carolina@example.com")
}

func TestBuildEventRemoteOmitsAddress(t *testing.T) {
	booking := &models.Booking{
		Name:     "Pedro",
		Date:     "2026-09-07",
		Time:     "18:00",
		Service:  "Seguimiento",
		Modality: models.ModalityRemote,
	}

	event, err := buildEvent(booking, "America/Santiago", santiago(t))
	require.NoError(t, err)
	assert.Contains(t, event.Description, "Modalidad: Online")
	assert.NotContains(t, event.Description, "Dirección")
}

func TestBuildEventBadTime(t *testing.T) {
	booking := &models.Booking{Date: "2026-09-07", Time: "garbage"}
	_, err := buildEvent(booking, "America/Santiago", santiago(t))
	assert.Error(t, err)
}

func TestVerifyEmptyToken(t *testing.T) {
	svc := NewIdentityService("")
	_, err := svc.Verify(context.Background(), "Bearer ")
	assert.Error(t, err)
}
