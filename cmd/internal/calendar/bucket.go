package calendar

import (
	"time"

	"agendo/cmd/internal/domain/entity"
)

// Bucket filters events to those starting in the cell's calendar day and,
// for hour cells, the cell's hour. Attribution uses the start time only: an
// event spanning 9:00-13:00 shows up solely in the 9:00 slot, never in the
// slots it runs through. Input order is preserved, so callers wanting
// stable display pass events pre-sorted by start time.
func Bucket(events []*entity.Event, cell Cell) []*entity.Event {
	loc := cell.Date.Location()

	var matched []*entity.Event
	for _, ev := range events {
		start := time.UnixMilli(ev.BeginsAt).In(loc)
		if !sameDay(start, cell.Date) {
			continue
		}
		if cell.Hour >= 0 && start.Hour() != cell.Hour {
			continue
		}
		matched = append(matched, ev)
	}
	return matched
}
