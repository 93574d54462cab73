package scheduling

import (
	"context"
	"time"

	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
)

// Candidate is a proposed appointment prior to validation. End may be
// zero, in which case the catalog's default duration for Type applies.
type Candidate struct {
	PatientID      string
	PractitionerID string
	Start          time.Time
	End            time.Time
	Type           model.AppointmentType
	Urgency        model.Urgency
	Reason         string
	Notes          string
}

// validator performs structural checks and the conflict check against
// the store. It has no side effects; persistence is the caller's step.
type validator struct {
	store         Store
	patients      PatientDirectory
	practitioners PractitionerDirectory
	catalog       Catalog
}

// validateAndPrepare returns a fully-populated appointment (without id
// and status, which the write path assigns) or a typed error. When
// excludeID is non-empty, that appointment is excluded from the
// conflict set so an update does not collide with itself.
func (v *validator) validateAndPrepare(ctx context.Context, tenantID string, cand Candidate, excludeID string) (model.Appointment, error) {
	appt, err := v.validateStructure(ctx, tenantID, cand)
	if err != nil {
		return model.Appointment{}, err
	}

	conflictID, found, err := v.store.FindConflict(ctx, tenantID, cand.PractitionerID, appt.Start, appt.End, excludeID)
	if err != nil {
		return model.Appointment{}, err
	}
	if found {
		return model.Appointment{}, &ConflictError{ConflictingID: conflictID}
	}
	return appt, nil
}

// validateStructure runs every check except the conflict query:
// interval sanity, single-day span, enums, directory lookups, and the
// catalog default for a missing end time. Writes that release a slot
// rather than occupy one still go through this.
func (v *validator) validateStructure(ctx context.Context, tenantID string, cand Candidate) (model.Appointment, error) {
	var zero model.Appointment

	if tenantID == "" {
		return zero, invalid("tenant_id", "required")
	}
	if cand.PatientID == "" {
		return zero, invalid("patient_id", "required")
	}
	if cand.PractitionerID == "" {
		return zero, invalid("practitioner_id", "required")
	}
	if cand.Start.IsZero() {
		return zero, invalid("start_time", "required")
	}
	if _, err := model.ParseAppointmentType(string(cand.Type)); err != nil {
		return zero, invalid("type", err.Error())
	}
	if cand.Urgency == "" {
		cand.Urgency = model.UrgencyMedium
	}
	if _, err := model.ParseUrgency(string(cand.Urgency)); err != nil {
		return zero, invalid("urgency", err.Error())
	}

	end := cand.End
	if end.IsZero() {
		end = cand.Start.Add(v.catalog.DefaultDuration(cand.Type))
	}
	if !end.After(cand.Start) {
		return zero, invalid("end_time", "must be after start_time")
	}
	// Appointments may not span calendar days. Both instants are
	// timezone-aware; the comparison uses the start's location.
	startLocal := cand.Start
	endLocal := end.In(cand.Start.Location())
	sy, sm, sd := startLocal.Date()
	ey, em, ed := endLocal.Date()
	if sy != ey || sm != em || sd != ed {
		return zero, invalid("end_time", "appointment must not span multiple days")
	}

	ok, err := v.patients.Exists(ctx, tenantID, cand.PatientID)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, &NotFoundError{Kind: "patient", ID: cand.PatientID}
	}
	ok, err = v.practitioners.Exists(ctx, tenantID, cand.PractitionerID)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, &NotFoundError{Kind: "practitioner", ID: cand.PractitionerID}
	}
	ok, err = v.practitioners.Bookable(ctx, tenantID, cand.PractitionerID)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, invalid("practitioner_id", "practitioner role is not schedulable")
	}

	return model.Appointment{
		TenantID:       tenantID,
		PatientID:      cand.PatientID,
		PractitionerID: cand.PractitionerID,
		Start:          cand.Start,
		End:            end,
		Type:           cand.Type,
		Urgency:        cand.Urgency,
		Reason:         cand.Reason,
		Notes:          cand.Notes,
	}, nil
}
