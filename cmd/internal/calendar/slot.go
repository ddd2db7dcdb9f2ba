package calendar

import "time"

// Slot identifies a clicked target in a calendar view. The shape differs
// per view: monthly carries a date, weekly a date and hour, daily only an
// hour that resolves against the current anchor date.
type Slot struct {
	Mode ViewMode
	Date time.Time
	Hour int
}

func MonthlySlot(date time.Time) Slot {
	return Slot{Mode: ViewMonthly, Date: date, Hour: -1}
}

func WeeklySlot(date time.Time, hour int) Slot {
	return Slot{Mode: ViewWeekly, Date: date, Hour: hour}
}

func DailySlot(hour int) Slot {
	return Slot{Mode: ViewDaily, Hour: hour}
}

// DraftWindow resolves a slot into the default one-hour window for a new
// event form. Monthly slots have no hour, so fallbackHour is used; daily
// slots have no date, so the day comes from anchor.
func (s Slot) DraftWindow(anchor time.Time, fallbackHour int) (start, end time.Time) {
	day := s.Date
	hour := s.Hour
	switch s.Mode {
	case ViewMonthly:
		hour = fallbackHour
	case ViewDaily:
		day = anchor
	}

	start = time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	return start, start.Add(time.Hour)
}
