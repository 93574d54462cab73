package hours

import (
	"context"
	"testing"
	"time"
)

func TestStaticHoursStayOnRequestedDay(t *testing.T) {
	// The request date arrives as midnight UTC. For a zone west of UTC
	// the open/close instants must still land on that calendar day, not
	// the previous one.
	s, err := NewStatic("09:00", "17:00", "America/New_York")
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	open, close, err := s.Hours(context.Background(), "tenant-1", date)
	if err != nil {
		t.Fatalf("Hours: %v", err)
	}
	if y, m, d := open.Date(); y != 2026 || m != time.January || d != 28 {
		t.Fatalf("expected open on 2026-01-28, got %s", open.Format(time.RFC3339))
	}
	if open.Hour() != 9 || open.Minute() != 0 {
		t.Fatalf("expected open at 09:00 local, got %s", open.Format("15:04"))
	}
	if y, m, d := close.Date(); y != 2026 || m != time.January || d != 28 {
		t.Fatalf("expected close on 2026-01-28, got %s", close.Format(time.RFC3339))
	}
	if got := close.Sub(open); got != 8*time.Hour {
		t.Fatalf("expected an 8h window, got %s", got)
	}
}

func TestStaticHoursEastOfUTC(t *testing.T) {
	s, err := NewStatic("09:00", "17:00", "Asia/Tokyo")
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	open, _, err := s.Hours(context.Background(), "tenant-1", date)
	if err != nil {
		t.Fatalf("Hours: %v", err)
	}
	if y, m, d := open.Date(); y != 2026 || m != time.January || d != 28 {
		t.Fatalf("expected open on 2026-01-28, got %s", open.Format(time.RFC3339))
	}
}

func TestStaticHoursUTC(t *testing.T) {
	s, err := NewStatic("08:30", "12:00", "")
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	open, close, err := s.Hours(context.Background(), "tenant-1", date)
	if err != nil {
		t.Fatalf("Hours: %v", err)
	}
	want := time.Date(2026, 1, 28, 8, 30, 0, 0, time.UTC)
	if !open.Equal(want) {
		t.Fatalf("expected open %s, got %s", want.Format(time.RFC3339), open.Format(time.RFC3339))
	}
	if !close.Equal(time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected close %s", close.Format(time.RFC3339))
	}
}

func TestStaticRejectsBadInputs(t *testing.T) {
	if _, err := NewStatic("9am", "17:00", ""); err == nil {
		t.Fatal("expected error for malformed open time")
	}
	if _, err := NewStatic("09:00", "17:00", "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestStaticInvertedWindowMeansClosed(t *testing.T) {
	s, err := NewStatic("17:00", "09:00", "")
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	open, close, err := s.Hours(context.Background(), "tenant-1", time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Hours: %v", err)
	}
	if !open.IsZero() || !close.IsZero() {
		t.Fatalf("expected zero instants for an inverted window, got %s / %s", open, close)
	}
}
