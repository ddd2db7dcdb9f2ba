package calendar

import "agendo/cmd/internal/domain/entity"

// Candidate is a proposed event: the fields overlap detection needs, plus
// the id to skip when the proposal is an edit of an existing event.
type Candidate struct {
	BeginsAt  int64
	EndsAt    int64
	UserID    int
	ExcludeID string
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && bStart < aEnd
}

// FindOverlaps scans existing and returns every event owned by the
// candidate's user whose interval intersects the candidate's. The full
// conflict set is returned in input order. Linear scan; an interval index
// buys nothing at personal-calendar event counts.
func FindOverlaps(c Candidate, existing []*entity.Event) []*entity.Event {
	var conflicts []*entity.Event
	for _, ev := range existing {
		if ev.UserID != c.UserID {
			continue
		}
		if c.ExcludeID != "" && ev.ID == c.ExcludeID {
			continue
		}
		if Overlaps(c.BeginsAt, c.EndsAt, ev.BeginsAt, ev.EndsAt) {
			conflicts = append(conflicts, ev)
		}
	}
	return conflicts
}
