package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"citas/internal/models"

	"github.com/xuri/excelize/v2"
)

// handleExport отдаёт xlsx с записями диапазона дат. Диапазон по
// умолчанию — ближайшие 30 дней.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 30)

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load bookings for export")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	f, err := buildExportFile(bookings, start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build export file")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer f.Close()

	fileName := fmt.Sprintf("citas_%s_%s.xlsx",
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)

	if _, err := f.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to write export file")
	}
}

func buildExportFile(bookings []*models.Booking, start, end time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := "Citas"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Período: %s - %s",
		start.Format("02.01.2006"), end.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "I1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Fecha", "Hora", "Servicio", "Modalidad", "Dirección", "Nombre", "Email", "Teléfono", "Estado"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, b := range bookings {
		values := []any{b.Date, b.Time, b.Service, b.Modality, b.Address, b.Name, b.Email, b.Phone, b.Status}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "I", 18)
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}
