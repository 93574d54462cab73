package model

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusConfirmed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusInProgress} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestOccupyingStatuses(t *testing.T) {
	occupying := map[Status]bool{
		StatusScheduled:  true,
		StatusConfirmed:  true,
		StatusInProgress: true,
		StatusCompleted:  false,
		StatusCancelled:  false,
		StatusNoShow:     false,
	}
	for s, want := range occupying {
		if got := s.Occupies(); got != want {
			t.Fatalf("%s: expected Occupies()=%v, got %v", s, want, got)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	if _, err := ParseStatus("booked"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if s, err := ParseStatus("in-progress"); err != nil || s != StatusInProgress {
		t.Fatalf("expected in-progress to parse, got %v / %v", s, err)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	a := Appointment{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)}
	b := Appointment{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)}
	touching := Appointment{Start: a.End, End: a.End.Add(30 * time.Minute)}

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Fatal("expected overlapping intervals to conflict")
	}
	if a.Overlaps(touching) || touching.Overlaps(a) {
		t.Fatal("touching boundary must not conflict")
	}
}
