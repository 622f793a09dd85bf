package models

import (
	"time"
)

// WeeklyTemplate отображает ISO день недели (1=понедельник ... 7=воскресенье)
// на список номинальных слотов "HH:MM". День без записи не принимает записи.
type WeeklyTemplate map[int][]string

// SlotTimes возвращает слоты для ISO дня недели. Пустой срез — день закрыт.
func (t WeeklyTemplate) SlotTimes(isoWeekday int) []string {
	return t[isoWeekday]
}

// HasDay сообщает, есть ли у дня недели хотя бы один номинальный слот.
func (t WeeklyTemplate) HasDay(isoWeekday int) bool {
	return len(t[isoWeekday]) > 0
}

// BusyInterval — полуоткрытый интервал [Start, End), в течение которого
// запись невозможна. Источник — уже сохранённые брони.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DaySlot — кандидат (дата, время) с флагом доступности.
type DaySlot struct {
	Start    time.Time `json:"start"`
	Time     string    `json:"time"`
	Bookable bool      `json:"bookable"`
}

// CalendarDay — день отображаемого месяца.
type CalendarDay struct {
	Date        time.Time `json:"date"`
	Weekday     int       `json:"weekday"`
	IsPast      bool      `json:"is_past"`
	HasTemplate bool      `json:"has_template"`
	Selectable  bool      `json:"selectable"`
}

// Contact — контактные данные клиента.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingDraft — черновик записи, накапливаемый пошаговой формой.
// Принадлежит ровно одной сессии; обнуляется при сбросе формы.
type BookingDraft struct {
	Service  string  `json:"service"`
	Modality string  `json:"modality"`
	Address  string  `json:"address"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Time     string  `json:"time"` // HH:MM
	Contact  Contact `json:"contact"`
}

// Booking — подтверждённая запись.
type Booking struct {
	ID         int64     `json:"id"`
	RequestKey string    `json:"request_key"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Service    string    `json:"service"`
	Modality   string    `json:"modality"`
	Address    string    `json:"address"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StartInstant собирает абсолютное время начала записи в заданной зоне.
func (b *Booking) StartInstant(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, loc)
}
