package scheduling

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/curaplan/clinicops/libs/cachex"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
)

// Default TTLs per key family. Lists churn more than single-entity
// details, so they expire sooner.
const (
	DefaultDetailTTL = 10 * time.Minute
	DefaultListTTL   = 2 * time.Minute
)

// readThrough is the cache-aside read layer: check the cache, fall
// through to the store on a miss, shape the result with display names,
// repopulate, return. Cache failures are absorbed; the store path
// always remains available.
type readThrough struct {
	store         Store
	cache         cachex.Cache
	patients      PatientDirectory
	practitioners PractitionerDirectory
	logger        *slog.Logger
	detailTTL     time.Duration
	listTTL       time.Duration
}

func (r *readThrough) getView(ctx context.Context, tenantID, id string) (AppointmentView, error) {
	key := detailKey(tenantID, id)
	var cached AppointmentView
	if ok := r.cacheGet(ctx, key, &cached); ok {
		return cached, nil
	}

	appt, err := r.store.Get(ctx, tenantID, id)
	if err != nil {
		return AppointmentView{}, err
	}
	view := r.shape(ctx, appt)
	r.cacheSet(ctx, key, view, r.detailTTL)
	return view, nil
}

func (r *readThrough) listViews(ctx context.Context, tenantID, key string, load func(context.Context) ([]model.Appointment, error)) ([]AppointmentView, error) {
	var cached []AppointmentView
	if ok := r.cacheGet(ctx, key, &cached); ok {
		return cached, nil
	}

	appts, err := load(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		views = append(views, r.shape(ctx, a))
	}
	r.cacheSet(ctx, key, views, r.listTTL)
	return views, nil
}

func (r *readThrough) byPatient(ctx context.Context, tenantID, patientID string) ([]AppointmentView, error) {
	return r.listViews(ctx, tenantID, patientListKey(tenantID, patientID), func(ctx context.Context) ([]model.Appointment, error) {
		return r.store.ListByPatient(ctx, tenantID, patientID)
	})
}

func (r *readThrough) byPractitioner(ctx context.Context, tenantID, practitionerID string) ([]AppointmentView, error) {
	return r.listViews(ctx, tenantID, practitionerListKey(tenantID, practitionerID), func(ctx context.Context) ([]model.Appointment, error) {
		return r.store.ListByPractitioner(ctx, tenantID, practitionerID)
	})
}

func (r *readThrough) all(ctx context.Context, tenantID string) ([]AppointmentView, error) {
	return r.listViews(ctx, tenantID, globalListKey(tenantID), func(ctx context.Context) ([]model.Appointment, error) {
		return r.store.ListByTenant(ctx, tenantID)
	})
}

// shape attaches denormalized display names. Directory failures only
// degrade the view (names stay empty); the record itself is served.
func (r *readThrough) shape(ctx context.Context, a model.Appointment) AppointmentView {
	patientName, err := r.patients.DisplayName(ctx, a.PatientID)
	if err != nil {
		r.logger.Debug("patient name lookup failed", "patient_id", a.PatientID, "err", err)
		patientName = ""
	}
	practitionerName, err := r.practitioners.DisplayName(ctx, a.PractitionerID)
	if err != nil {
		r.logger.Debug("practitioner name lookup failed", "practitioner_id", a.PractitionerID, "err", err)
		practitionerName = ""
	}
	return viewOf(a, patientName, practitionerName)
}

func (r *readThrough) cacheGet(ctx context.Context, key string, out any) bool {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		cerr := &CacheError{Op: "get", Key: key, Err: err}
		r.logger.Warn("cache read failed; falling back to store", "err", cerr)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry is treated as a miss and will be rewritten.
		r.logger.Warn("cache entry decode failed", "key", key, "err", err)
		return false
	}
	return true
}

func (r *readThrough) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("cache entry encode failed", "key", key, "err", err)
		return
	}
	if err := r.cache.Set(ctx, key, raw, ttl); err != nil {
		cerr := &CacheError{Op: "set", Key: key, Err: err}
		r.logger.Warn("cache write failed", "err", cerr)
	}
}
