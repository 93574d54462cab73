package availability

import (
	"testing"
	"time"
)

func at(day time.Time, h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestFreeSlotsEmptyDay(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	slots := FreeSlots(at(day, 9, 0), at(day, 11, 0), 30*time.Minute, nil)
	if len(slots) != 4 {
		t.Fatalf("expected 4 uniform slots, got %d", len(slots))
	}
	for i, s := range slots {
		expected := at(day, 9, 0).Add(time.Duration(i) * 30 * time.Minute)
		if !s.Start.Equal(expected) || !s.End.Equal(expected.Add(30*time.Minute)) {
			t.Fatalf("slot %d: expected %s, got %s", i, expected.Format(time.RFC3339), s.Start.Format(time.RFC3339))
		}
	}
}

func TestFreeSlotsAroundBooking(t *testing.T) {
	// Clinic hours 09:00-12:00, 30-minute slots, one booking 10:00-10:30.
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: at(day, 10, 0), End: at(day, 10, 30)}}

	slots := FreeSlots(at(day, 9, 0), at(day, 12, 0), 30*time.Minute, busy)

	want := [][2]time.Time{
		{at(day, 9, 0), at(day, 9, 30)},
		{at(day, 9, 30), at(day, 10, 0)},
		{at(day, 10, 30), at(day, 11, 0)},
		{at(day, 11, 0), at(day, 11, 30)},
		{at(day, 11, 30), at(day, 12, 0)},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, s := range slots {
		if !s.Start.Equal(want[i][0]) || !s.End.Equal(want[i][1]) {
			t.Fatalf("slot %d: expected %s-%s, got %s-%s", i,
				want[i][0].Format("15:04"), want[i][1].Format("15:04"),
				s.Start.Format("15:04"), s.End.Format("15:04"))
		}
	}
}

func TestFreeSlotsUnalignedBookingAdvancesToItsEnd(t *testing.T) {
	// Booking 09:10-09:40 pushes the sweep to 09:40, not to the next
	// grid step.
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: at(day, 9, 10), End: at(day, 9, 40)}}

	slots := FreeSlots(at(day, 9, 0), at(day, 10, 40), 30*time.Minute, busy)

	want := [][2]time.Time{
		{at(day, 9, 40), at(day, 10, 10)},
		{at(day, 10, 10), at(day, 10, 40)},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, s := range slots {
		if !s.Start.Equal(want[i][0]) || !s.End.Equal(want[i][1]) {
			t.Fatalf("slot %d: expected start %s, got %s", i, want[i][0].Format("15:04"), s.Start.Format("15:04"))
		}
	}
}

func TestFreeSlotsBookingAbutsClosingTime(t *testing.T) {
	// A booking ending exactly at close must not truncate the last free
	// slot before it.
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: at(day, 11, 30), End: at(day, 12, 0)}}

	slots := FreeSlots(at(day, 9, 0), at(day, 12, 0), 30*time.Minute, busy)
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(at(day, 11, 0)) || !last.End.Equal(at(day, 11, 30)) {
		t.Fatalf("expected last slot 11:00-11:30, got %s-%s", last.Start.Format("15:04"), last.End.Format("15:04"))
	}
}

func TestFreeSlotsContiguousBookings(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{
		{Start: at(day, 9, 30), End: at(day, 10, 0)},
		{Start: at(day, 10, 0), End: at(day, 10, 30)},
	}
	slots := FreeSlots(at(day, 9, 0), at(day, 11, 0), 30*time.Minute, busy)
	want := []time.Time{at(day, 9, 0), at(day, 10, 30)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if !s.Start.Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i].Format("15:04"), s.Start.Format("15:04"))
		}
	}
}

func TestFreeSlotsDegenerateInputs(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	if got := FreeSlots(at(day, 9, 0), at(day, 9, 0), 30*time.Minute, nil); got != nil {
		t.Fatalf("expected nil for empty window, got %+v", got)
	}
	if got := FreeSlots(at(day, 9, 0), at(day, 10, 0), 0, nil); got != nil {
		t.Fatalf("expected nil for zero duration, got %+v", got)
	}
	if got := FreeSlots(at(day, 9, 0), at(day, 9, 20), 30*time.Minute, nil); got != nil {
		t.Fatalf("expected nil when no slot fits, got %+v", got)
	}
}

func TestFreeSlotsRecomputable(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: at(day, 10, 0), End: at(day, 10, 30)}}
	a := FreeSlots(at(day, 9, 0), at(day, 12, 0), 30*time.Minute, busy)
	b := FreeSlots(at(day, 9, 0), at(day, 12, 0), 30*time.Minute, busy)
	if len(a) != len(b) {
		t.Fatalf("expected identical recomputation, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Fatalf("slot %d differs between runs", i)
		}
	}
}
