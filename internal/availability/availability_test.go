package availability

import (
	"testing"
	"time"

	"citas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTemplate = models.WeeklyTemplate{
	1: {"17:00", "18:00"},
	4: {"16:00", "17:00", "18:00"},
	5: {"16:00", "17:00", "18:00"},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(date(2025, time.September, 1))) // понедельник
	assert.Equal(t, 4, ISOWeekday(date(2025, time.September, 4)))
	assert.Equal(t, 7, ISOWeekday(date(2025, time.September, 7))) // воскресенье
}

func TestCalendarDays(t *testing.T) {
	t.Run("FullMonthAscending", func(t *testing.T) {
		today := date(2025, time.September, 10)
		days := CalendarDays(2025, time.September, testTemplate, today)
		require.Len(t, days, 30)
		for i, d := range days {
			assert.Equal(t, i+1, d.Date.Day())
		}
	})

	t.Run("PastDaysNeverSelectable", func(t *testing.T) {
		today := date(2025, time.September, 10)
		days := CalendarDays(2025, time.September, testTemplate, today)
		for _, d := range days {
			if d.Date.Before(date(2025, time.September, 10)) {
				assert.False(t, d.Selectable, "day %s", d.Date)
				assert.True(t, d.IsPast)
			}
		}
		// Сегодняшний день не считается прошедшим.
		assert.False(t, days[9].IsPast)
	})

	t.Run("TodayMidnightBoundary", func(t *testing.T) {
		// today с ненулевым временем суток не должен отсекать сам себя
		today := time.Date(2025, time.September, 10, 23, 59, 0, 0, time.UTC)
		days := CalendarDays(2025, time.September, testTemplate, today)
		assert.False(t, days[9].IsPast)
		assert.True(t, days[8].IsPast)
	})

	t.Run("DaysWithoutTemplateNotSelectable", func(t *testing.T) {
		today := date(2025, time.September, 1)
		days := CalendarDays(2025, time.September, testTemplate, today)
		for _, d := range days {
			if d.Weekday == 2 || d.Weekday == 3 || d.Weekday == 6 || d.Weekday == 7 {
				assert.False(t, d.HasTemplate)
				assert.False(t, d.Selectable)
			}
		}
	})

	t.Run("MonthWithNoSelectableDays", func(t *testing.T) {
		// Шаблон пуст — весь месяц неактивен, но все дни присутствуют.
		today := date(2025, time.February, 1)
		days := CalendarDays(2025, time.February, models.WeeklyTemplate{}, today)
		require.Len(t, days, 28)
		for _, d := range days {
			assert.False(t, d.Selectable)
		}
	})

	t.Run("LeapFebruary", func(t *testing.T) {
		days := CalendarDays(2024, time.February, testTemplate, date(2024, time.February, 1))
		assert.Len(t, days, 29)
	})

	t.Run("WeekdayOffsets", func(t *testing.T) {
		// 1 сентября 2025 — понедельник, 30 ноября 2025 — воскресенье.
		sep := CalendarDays(2025, time.September, testTemplate, date(2025, time.September, 1))
		assert.Equal(t, 1, sep[0].Weekday)
		nov := CalendarDays(2025, time.November, testTemplate, date(2025, time.November, 1))
		assert.Equal(t, 7, nov[len(nov)-1].Weekday)
	})
}

func TestDaySlots(t *testing.T) {
	thursday := date(2025, time.September, 4)

	t.Run("EmptyForWeekdayWithoutTemplate", func(t *testing.T) {
		tuesday := date(2025, time.September, 2)
		slots := DaySlots(tuesday, testTemplate, nil)
		assert.Empty(t, slots)
	})

	t.Run("TemplateOrderPreserved", func(t *testing.T) {
		slots := DaySlots(thursday, testTemplate, nil)
		require.Len(t, slots, 3)
		assert.Equal(t, "16:00", slots[0].Time)
		assert.Equal(t, "17:00", slots[1].Time)
		assert.Equal(t, "18:00", slots[2].Time)
		for _, s := range slots {
			assert.True(t, s.Bookable)
		}
	})

	t.Run("BusyIntervalSuppressesSlot", func(t *testing.T) {
		busy := []models.BusyInterval{{
			Start: time.Date(2025, time.September, 4, 17, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.September, 4, 18, 0, 0, 0, time.UTC),
		}}
		slots := DaySlots(thursday, testTemplate, busy)
		require.Len(t, slots, 3)
		assert.True(t, slots[0].Bookable)
		assert.False(t, slots[1].Bookable)
		assert.True(t, slots[2].Bookable)
	})

	t.Run("AllSlotsBusyStillListed", func(t *testing.T) {
		busy := []models.BusyInterval{{
			Start: time.Date(2025, time.September, 4, 16, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.September, 4, 19, 0, 0, 0, time.UTC),
		}}
		slots := DaySlots(thursday, testTemplate, busy)
		require.Len(t, slots, 3)
		for _, s := range slots {
			assert.False(t, s.Bookable)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		busy := []models.BusyInterval{{
			Start: time.Date(2025, time.September, 4, 17, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.September, 4, 18, 0, 0, 0, time.UTC),
		}}
		first := DaySlots(thursday, testTemplate, busy)
		second := DaySlots(thursday, testTemplate, busy)
		assert.Equal(t, first, second)
	})

	t.Run("MalformedTemplateTimeSkipped", func(t *testing.T) {
		broken := models.WeeklyTemplate{4: {"16:00", "oops", "18:00"}}
		slots := DaySlots(thursday, broken, nil)
		require.Len(t, slots, 2)
		assert.Equal(t, "16:00", slots[0].Time)
		assert.Equal(t, "18:00", slots[1].Time)
	})
}

func TestSlotBusy(t *testing.T) {
	busyStart := time.Date(2025, time.September, 4, 17, 0, 0, 0, time.UTC)
	busyEnd := time.Date(2025, time.September, 4, 18, 0, 0, 0, time.UTC)
	busy := []models.BusyInterval{{Start: busyStart, End: busyEnd}}

	cases := []struct {
		name string
		slot time.Time
		want bool
	}{
		{"BeforeInterval", busyStart.Add(-time.Hour), false},
		{"AtStartInclusive", busyStart, true},
		{"Inside", busyStart.Add(30 * time.Minute), true},
		{"AtEndExclusive", busyEnd, false},
		{"AfterInterval", busyEnd.Add(time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SlotBusy(tc.slot, busy))
		})
	}

	t.Run("NoIntervals", func(t *testing.T) {
		assert.False(t, SlotBusy(busyStart, nil))
	})

	t.Run("SecondIntervalMatches", func(t *testing.T) {
		extra := append(busy, models.BusyInterval{
			Start: busyEnd.Add(time.Hour),
			End:   busyEnd.Add(2 * time.Hour),
		})
		assert.True(t, SlotBusy(busyEnd.Add(time.Hour), extra))
	})
}
