package availability

import (
	"sort"
	"time"
)

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Slot is a bookable interval of fixed duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// FreeSlots sweeps a cursor from open: it proposes [cursor, cursor+duration);
// if the proposal overlaps a busy interval the cursor jumps to that interval's
// end and the proposal is retried, otherwise the slot is emitted and the
// cursor advances by duration. The sweep stops once cursor+duration would
// pass close. All comparisons use exact instant arithmetic, so a booking that
// abuts the closing time never truncates the last valid slot.
//
// The result is a pure function of its inputs and can be recomputed
// identically; busy intervals may arrive unsorted.
func FreeSlots(open, close time.Time, duration time.Duration, busy []Interval) []Slot {
	if duration <= 0 || !close.After(open) {
		return nil
	}

	sorted := make([]Interval, 0, len(busy))
	for _, iv := range busy {
		if iv.Valid() {
			sorted = append(sorted, iv)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var slots []Slot
	cursor := open
	for !cursor.Add(duration).After(close) {
		end := cursor.Add(duration)
		if blocked, until := overlapping(cursor, end, sorted); blocked {
			if !until.After(cursor) {
				// The cursor must always advance; a busy interval
				// ending at or before it cannot set the jump target.
				cursor = cursor.Add(duration)
				continue
			}
			cursor = until
			continue
		}
		slots = append(slots, Slot{Start: cursor, End: end})
		cursor = end
	}
	return slots
}

// overlapping reports whether [start, end) intersects any busy interval
// under half-open semantics, returning the end of the latest such
// interval so the sweep can jump past contiguous bookings in one step.
func overlapping(start, end time.Time, busy []Interval) (bool, time.Time) {
	var until time.Time
	hit := false
	for _, b := range busy {
		// [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			hit = true
			if b.End.After(until) {
				until = b.End
			}
		}
	}
	return hit, until
}
