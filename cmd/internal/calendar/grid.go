package calendar

import "time"

type ViewMode string

const (
	ViewMonthly ViewMode = "monthly"
	ViewWeekly  ViewMode = "weekly"
	ViewDaily   ViewMode = "daily"
)

func ParseViewMode(s string) (ViewMode, bool) {
	switch ViewMode(s) {
	case ViewMonthly, ViewWeekly, ViewDaily:
		return ViewMode(s), true
	}
	return "", false
}

// MonthGridCells is 6 full weeks of 7 days, so the grid shape never
// changes between months.
const MonthGridCells = 42

// Cell is one slot of a calendar view. Hour is -1 for day cells and the
// slot hour (0-23) for hour cells. InPeriod marks cells belonging to the
// anchor's own month; filler days from adjacent months carry false.
type Cell struct {
	Date     time.Time
	Hour     int
	InPeriod bool
	Today    bool
}

// Grid produces the ordered cells for the view anchored at anchor:
// 42 day cells for monthly, 7 (Sunday through Saturday) for weekly,
// 24 hour slots for daily. now feeds only the Today flag; taking it as a
// parameter keeps generation deterministic.
func Grid(anchor time.Time, mode ViewMode, now time.Time) []Cell {
	switch mode {
	case ViewWeekly:
		return weekGrid(anchor, now)
	case ViewDaily:
		return dayGrid(anchor, now)
	default:
		return monthGrid(anchor, now)
	}
}

func monthGrid(anchor, now time.Time) []Cell {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	start := first.AddDate(0, 0, -int(first.Weekday()))

	cells := make([]Cell, MonthGridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = Cell{
			Date:     d,
			Hour:     -1,
			InPeriod: d.Month() == anchor.Month() && d.Year() == anchor.Year(),
			Today:    sameDay(d, now),
		}
	}
	return cells
}

func weekGrid(anchor, now time.Time) []Cell {
	day := midnight(anchor)
	start := day.AddDate(0, 0, -int(day.Weekday()))

	cells := make([]Cell, 7)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = Cell{
			Date:     d,
			Hour:     -1,
			InPeriod: true,
			Today:    sameDay(d, now),
		}
	}
	return cells
}

func dayGrid(anchor, now time.Time) []Cell {
	day := midnight(anchor)
	today := sameDay(day, now)

	cells := make([]Cell, 24)
	for h := range cells {
		cells[h] = Cell{
			Date:     day,
			Hour:     h,
			InPeriod: true,
			Today:    today,
		}
	}
	return cells
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
