package scheduling

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"
)

func TestEveryWriteEventHasRules(t *testing.T) {
	for _, event := range []WriteEvent{EventCreate, EventUpdate, EventCancel, EventDelete} {
		families, ok := invalidationRules[event]
		if !ok || len(families) == 0 {
			t.Fatalf("event %s has no invalidation rules", event)
		}
		seen := map[keyFamily]bool{}
		for _, f := range families {
			if seen[f] {
				t.Fatalf("event %s lists family %d twice", event, f)
			}
			seen[f] = true
		}
		for _, f := range []keyFamily{familyDetail, familyPatientList, familyPractitionerList, familyGlobalList} {
			if !seen[f] {
				t.Fatalf("event %s does not invalidate family %d", event, f)
			}
		}
	}
}

type recordingCache struct {
	deleted []string
}

func (c *recordingCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (c *recordingCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}

func TestInvalidateCoversBothOwnersOnReassignment(t *testing.T) {
	cache := &recordingCache{}
	inv := &invalidator{cache: cache, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	inv.invalidate(context.Background(), EventUpdate, WriteScope{
		TenantID:        "t1",
		AppointmentID:   "a1",
		PatientIDs:      []string{"p1", "p1"},
		PractitionerIDs: []string{"d1", "d2"},
	})

	want := []string{
		"appt:t1:a1",
		"appts:all:t1",
		"appts:patient:t1:p1",
		"appts:practitioner:t1:d1",
		"appts:practitioner:t1:d2",
	}
	got := append([]string(nil), cache.deleted...)
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
