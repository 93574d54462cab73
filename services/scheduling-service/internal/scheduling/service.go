package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/curaplan/clinicops/libs/cachex"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/audit"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/availability"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
	"github.com/google/uuid"
)

// Service is the appointment scheduling engine. Every operation takes
// the tenant id explicitly; nothing is read from ambient request state.
type Service struct {
	store         Store
	hours         HoursProvider
	catalog       Catalog
	practitioners PractitionerDirectory
	sink          audit.Sink
	logger        *slog.Logger

	check *validator
	reads *readThrough
	inval *invalidator
}

type Config struct {
	DetailTTL time.Duration
	ListTTL   time.Duration
}

func New(store Store, cache cachex.Cache, patients PatientDirectory, practitioners PractitionerDirectory, hours HoursProvider, catalog Catalog, sink audit.Sink, logger *slog.Logger, cfg Config) *Service {
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = DefaultDetailTTL
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = DefaultListTTL
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Service{
		store:         store,
		hours:         hours,
		catalog:       catalog,
		practitioners: practitioners,
		sink:          sink,
		logger:        logger,
		check: &validator{
			store:         store,
			patients:      patients,
			practitioners: practitioners,
			catalog:       catalog,
		},
		reads: &readThrough{
			store:         store,
			cache:         cache,
			patients:      patients,
			practitioners: practitioners,
			logger:        logger,
			detailTTL:     cfg.DetailTTL,
			listTTL:       cfg.ListTTL,
		},
		inval: &invalidator{cache: cache, logger: logger},
	}
}

// Create validates the candidate, persists it, and invalidates affected
// cache entries. The store's exclusion constraint backstops the
// conflict pre-check, so a concurrent booking that slips between check
// and insert still surfaces as a ConflictError rather than a
// double-booking.
func (s *Service) Create(ctx context.Context, tenantID string, cand Candidate) (AppointmentView, error) {
	appt, err := s.check.validateAndPrepare(ctx, tenantID, cand, "")
	if err != nil {
		return AppointmentView{}, err
	}

	now := time.Now().UTC()
	appt.ID = uuid.NewString()
	appt.Status = model.StatusScheduled
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := s.store.Insert(ctx, &appt); err != nil {
		return AppointmentView{}, s.namedConflict(ctx, err, appt, "")
	}

	s.inval.invalidate(ctx, EventCreate, WriteScope{
		TenantID:        tenantID,
		AppointmentID:   appt.ID,
		PatientIDs:      []string{appt.PatientID},
		PractitionerIDs: []string{appt.PractitionerID},
	})
	s.audit(ctx, audit.EventAppointmentBooked, appt)
	return s.reads.shape(ctx, appt), nil
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	PatientID      *string
	PractitionerID *string
	Start          *time.Time
	End            *time.Time
	Type           *model.AppointmentType
	Urgency        *model.Urgency
	Reason         *string
	Notes          *string
	Status         *model.Status
}

func (p Patch) reschedules() bool {
	return p.PatientID != nil || p.PractitionerID != nil || p.Start != nil || p.End != nil
}

// Update applies a patch to an existing appointment. Changing the time,
// practitioner, or patient re-runs structural validation; when the
// resulting status occupies the slot the conflict check also runs, with
// the appointment itself excluded so an unchanged time does not collide
// with itself. Reassignment invalidates both the old and the new
// owners' cached lists.
func (s *Service) Update(ctx context.Context, tenantID, id string, patch Patch) (AppointmentView, error) {
	existing, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return AppointmentView{}, err
	}
	if existing.Status.Terminal() {
		return AppointmentView{}, invalid("status", "appointment is "+string(existing.Status)+" and can no longer be modified")
	}

	updated := existing
	if patch.PatientID != nil {
		updated.PatientID = *patch.PatientID
	}
	if patch.PractitionerID != nil {
		updated.PractitionerID = *patch.PractitionerID
	}
	if patch.Start != nil {
		updated.Start = *patch.Start
	}
	if patch.End != nil {
		updated.End = *patch.End
	}
	if patch.Type != nil {
		updated.Type = *patch.Type
	}
	if patch.Urgency != nil {
		updated.Urgency = *patch.Urgency
	}
	if patch.Reason != nil {
		updated.Reason = *patch.Reason
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	if patch.Status != nil && *patch.Status != existing.Status {
		next, err := model.ParseStatus(string(*patch.Status))
		if err != nil {
			return AppointmentView{}, invalid("status", err.Error())
		}
		if next == model.StatusCancelled {
			return AppointmentView{}, invalid("status", "use the cancel operation (cancellation requires a reason)")
		}
		if !existing.Status.CanTransitionTo(next) {
			return AppointmentView{}, invalid("status", "cannot transition from "+string(existing.Status)+" to "+string(next))
		}
		updated.Status = next
	}

	if patch.reschedules() {
		cand := Candidate{
			PatientID:      updated.PatientID,
			PractitionerID: updated.PractitionerID,
			Start:          updated.Start,
			End:            updated.End,
			Type:           updated.Type,
			Urgency:        updated.Urgency,
			Reason:         updated.Reason,
			Notes:          updated.Notes,
		}
		// Structural checks always apply; the conflict query only
		// matters when the resulting status occupies the slot.
		var prepared model.Appointment
		if updated.Status.Occupies() {
			prepared, err = s.check.validateAndPrepare(ctx, tenantID, cand, id)
		} else {
			prepared, err = s.check.validateStructure(ctx, tenantID, cand)
		}
		if err != nil {
			return AppointmentView{}, err
		}
		updated.Start = prepared.Start
		updated.End = prepared.End
	}

	updated.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, &updated); err != nil {
		return AppointmentView{}, s.namedConflict(ctx, err, updated, id)
	}

	s.inval.invalidate(ctx, EventUpdate, WriteScope{
		TenantID:        tenantID,
		AppointmentID:   id,
		PatientIDs:      []string{existing.PatientID, updated.PatientID},
		PractitionerIDs: []string{existing.PractitionerID, updated.PractitionerID},
	})
	s.audit(ctx, audit.EventAppointmentUpdated, updated)
	return s.reads.shape(ctx, updated), nil
}

// Cancel transitions an appointment to cancelled. Cancelling an
// already-cancelled appointment is a no-op success that preserves the
// original cancellation reason.
func (s *Service) Cancel(ctx context.Context, tenantID, id, reason string) (AppointmentView, error) {
	existing, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return AppointmentView{}, err
	}
	if existing.Status == model.StatusCancelled {
		return s.reads.shape(ctx, existing), nil
	}
	if !existing.Status.CanTransitionTo(model.StatusCancelled) {
		return AppointmentView{}, invalid("status", "cannot cancel a "+string(existing.Status)+" appointment")
	}
	if reason == "" {
		return AppointmentView{}, invalid("reason", "required")
	}

	now := time.Now().UTC()
	existing.Status = model.StatusCancelled
	existing.CancelReason = reason
	existing.CancelledAt = &now
	existing.UpdatedAt = now

	if err := s.store.Update(ctx, &existing); err != nil {
		return AppointmentView{}, err
	}

	s.inval.invalidate(ctx, EventCancel, WriteScope{
		TenantID:        tenantID,
		AppointmentID:   id,
		PatientIDs:      []string{existing.PatientID},
		PractitionerIDs: []string{existing.PractitionerID},
	})
	s.audit(ctx, audit.EventAppointmentCancelled, existing)
	return s.reads.shape(ctx, existing), nil
}

// Delete removes the record entirely. Deletion is distinct from
// cancellation, which is a status transition.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	existing, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.inval.invalidate(ctx, EventDelete, WriteScope{
		TenantID:        tenantID,
		AppointmentID:   id,
		PatientIDs:      []string{existing.PatientID},
		PractitionerIDs: []string{existing.PractitionerID},
	})
	s.audit(ctx, audit.EventAppointmentDeleted, existing)
	return nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (AppointmentView, error) {
	if tenantID == "" {
		return AppointmentView{}, invalid("tenant_id", "required")
	}
	return s.reads.getView(ctx, tenantID, id)
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// List returns the filtered, paginated appointment listing plus the
// total match count. The backing cache entry is unfiltered; filters and
// pagination are applied in-process so one cached collection serves
// every filter combination. The cache source is chosen by the
// dominant filter: patient list, practitioner list, or the tenant-wide
// list.
func (s *Service) List(ctx context.Context, tenantID string, f ListFilter) ([]AppointmentView, int, error) {
	if tenantID == "" {
		return nil, 0, invalid("tenant_id", "required")
	}

	var (
		views []AppointmentView
		err   error
	)
	switch {
	case f.PatientID != "":
		views, err = s.reads.byPatient(ctx, tenantID, f.PatientID)
	case f.PractitionerID != "":
		views, err = s.reads.byPractitioner(ctx, tenantID, f.PractitionerID)
	default:
		views, err = s.reads.all(ctx, tenantID)
	}
	if err != nil {
		return nil, 0, err
	}

	filtered := make([]AppointmentView, 0, len(views))
	for _, v := range views {
		if f.matches(v) {
			filtered = append(filtered, v)
		}
	}
	total := len(filtered)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= total {
		return []AppointmentView{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

// FreeSlots computes the bookable slots of the given duration for a
// practitioner on a date. Slot computation is a derived, day-scoped
// view, so it queries the store directly rather than the cache.
func (s *Service) FreeSlots(ctx context.Context, tenantID, practitionerID string, date time.Time, duration time.Duration) ([]availability.Slot, error) {
	if tenantID == "" {
		return nil, invalid("tenant_id", "required")
	}
	if practitionerID == "" {
		return nil, invalid("practitioner_id", "required")
	}
	if duration <= 0 {
		return nil, invalid("duration", "must be positive")
	}

	ok, err := s.practitioners.Exists(ctx, tenantID, practitionerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Kind: "practitioner", ID: practitionerID}
	}

	open, close, err := s.hours.Hours(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	if open.IsZero() || close.IsZero() || !close.After(open) {
		return nil, nil
	}

	booked, err := s.store.ListOccupying(ctx, tenantID, practitionerID, open, close)
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, a := range booked {
		busy = append(busy, availability.Interval{Start: a.Start, End: a.End})
	}
	return availability.FreeSlots(open, close, duration, busy), nil
}

// namedConflict enriches a constraint-raised ConflictError (which
// carries no collider id) by re-querying the store, so both the
// pre-check path and the constraint path name the colliding
// appointment.
func (s *Service) namedConflict(ctx context.Context, err error, appt model.Appointment, excludeID string) error {
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.ConflictingID != "" {
		return err
	}
	id, found, qerr := s.store.FindConflict(ctx, appt.TenantID, appt.PractitionerID, appt.Start, appt.End, excludeID)
	if qerr == nil && found {
		return &ConflictError{ConflictingID: id}
	}
	return conflict
}

func (s *Service) audit(ctx context.Context, eventType string, appt model.Appointment) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":  appt.ID,
		"tenant_id":       appt.TenantID,
		"patient_id":      appt.PatientID,
		"practitioner_id": appt.PractitionerID,
		"start_time":      appt.Start.UTC().Format(time.RFC3339),
		"end_time":        appt.End.UTC().Format(time.RFC3339),
		"status":          string(appt.Status),
		"type":            string(appt.Type),
	})
	if err != nil {
		s.logger.Error("failed to build audit payload", "err", err)
		return
	}
	s.sink.Record(ctx, audit.Event{
		EventType:     eventType,
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		Payload:       payload,
	})
}
