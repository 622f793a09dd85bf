// Package availability строит календарь месяца и список слотов дня из
// недельного шаблона и занятых интервалов. Функции чистые, без I/O.
package availability

import (
	"time"

	"citas/internal/models"
)

// ISOWeekday возвращает день недели в ISO нумерации: 1=Пн ... 7=Вс.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Midnight обнуляет время, оставляя дату в зоне аргумента.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CalendarDays возвращает все дни месяца по возрастанию даты.
// День выбираем, если он не в прошлом (граница — полночь today)
// и его день недели присутствует в шаблоне с непустым списком слотов.
// Месяц без единого выбираемого дня — валидный результат, не ошибка.
func CalendarDays(year int, month time.Month, tmpl models.WeeklyTemplate, today time.Time) []models.CalendarDay {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	todayMidnight := Midnight(today)

	days := make([]models.CalendarDay, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		weekday := ISOWeekday(date)
		isPast := date.Before(todayMidnight)
		hasTemplate := tmpl.HasDay(weekday)
		days = append(days, models.CalendarDay{
			Date:        date,
			Weekday:     weekday,
			IsPast:      isPast,
			HasTemplate: hasTemplate,
			Selectable:  !isPast && hasTemplate,
		})
	}
	return days
}

// DaySlots строит слоты даты из шаблона её дня недели, сохраняя порядок
// шаблона. Слот недоступен, если его начало попадает в занятый интервал.
// Для дня недели без шаблона возвращается пустой список; день, у которого
// заняты все слоты, возвращает полный список с Bookable=false у каждого.
func DaySlots(date time.Time, tmpl models.WeeklyTemplate, busy []models.BusyInterval) []models.DaySlot {
	times := tmpl.SlotTimes(ISOWeekday(date))
	if len(times) == 0 {
		return []models.DaySlot{}
	}

	day := Midnight(date)
	slots := make([]models.DaySlot, 0, len(times))
	for _, hhmm := range times {
		t, err := time.ParseInLocation(models.TimeLayout, hhmm, date.Location())
		if err != nil {
			continue
		}
		start := day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		slots = append(slots, models.DaySlot{
			Start:    start,
			Time:     hhmm,
			Bookable: !SlotBusy(start, busy),
		})
	}
	return slots
}

// SlotBusy проверяет начало слота против занятых интервалов.
// Интервалы полуоткрытые: старт внутри [Start, End) — слот занят.
// Сравнивается только начало слота, не весь его интервал: проверка
// унаследована от исходной версии и завязана на часовые слоты.
func SlotBusy(slotStart time.Time, busy []models.BusyInterval) bool {
	for _, b := range busy {
		if !slotStart.Before(b.Start) && slotStart.Before(b.End) {
			return true
		}
	}
	return false
}
