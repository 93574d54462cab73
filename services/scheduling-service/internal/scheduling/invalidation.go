package scheduling

import (
	"context"
	"log/slog"

	"github.com/curaplan/clinicops/libs/cachex"
)

// WriteEvent identifies the kind of appointment write that occurred.
type WriteEvent int

const (
	EventCreate WriteEvent = iota
	EventUpdate
	EventCancel
	EventDelete
)

func (e WriteEvent) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventUpdate:
		return "update"
	case EventCancel:
		return "cancel"
	case EventDelete:
		return "delete"
	}
	return "unknown"
}

// keyFamily names a cached view family affected by writes.
type keyFamily int

const (
	familyDetail keyFamily = iota
	familyPatientList
	familyPractitionerList
	familyGlobalList
)

// invalidationRules maps each write event to the key families it makes
// stale. Every cached view must appear here; a new view that is not
// registered for the events that mutate it is a bug, not a tuning
// choice. Today every write invalidates every family, but the mapping
// stays explicit so that adding, say, a per-day calendar cache forces a
// decision per event.
var invalidationRules = map[WriteEvent][]keyFamily{
	EventCreate: {familyDetail, familyPatientList, familyPractitionerList, familyGlobalList},
	EventUpdate: {familyDetail, familyPatientList, familyPractitionerList, familyGlobalList},
	EventCancel: {familyDetail, familyPatientList, familyPractitionerList, familyGlobalList},
	EventDelete: {familyDetail, familyPatientList, familyPractitionerList, familyGlobalList},
}

// WriteScope carries every owner whose cached view a write could have
// touched. For reassignments both the old and new patient/practitioner
// ids must be present, otherwise the previous owner's cached list keeps
// serving the moved appointment.
type WriteScope struct {
	TenantID        string
	AppointmentID   string
	PatientIDs      []string
	PractitionerIDs []string
}

// invalidator clears cache entries after acknowledged writes. Cache
// failures never fail the triggering operation: a stale entry risks
// staleness, not an incorrect write, so errors are logged and
// swallowed.
type invalidator struct {
	cache  cachex.Cache
	logger *slog.Logger
}

func (inv *invalidator) invalidate(ctx context.Context, event WriteEvent, scope WriteScope) {
	var keys []string
	for _, family := range invalidationRules[event] {
		switch family {
		case familyDetail:
			keys = append(keys, detailKey(scope.TenantID, scope.AppointmentID))
		case familyPatientList:
			for _, id := range dedupe(scope.PatientIDs) {
				keys = append(keys, patientListKey(scope.TenantID, id))
			}
		case familyPractitionerList:
			for _, id := range dedupe(scope.PractitionerIDs) {
				keys = append(keys, practitionerListKey(scope.TenantID, id))
			}
		case familyGlobalList:
			keys = append(keys, globalListKey(scope.TenantID))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := inv.cache.Delete(ctx, keys...); err != nil {
		cerr := &CacheError{Op: "delete", Key: keys[0], Err: err}
		inv.logger.Warn("cache invalidation failed", "event", event.String(), "keys", len(keys), "err", cerr)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
