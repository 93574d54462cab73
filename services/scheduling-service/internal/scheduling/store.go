package scheduling

import (
	"context"
	"time"

	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
)

// Store is the durable, tenant-scoped appointment record store. The
// engine depends only on this contract; the pgx implementation lives in
// internal/storage. Implementations return the engine's typed errors
// (*NotFoundError, *ConflictError, *StoreError).
type Store interface {
	Insert(ctx context.Context, appt *model.Appointment) error
	Update(ctx context.Context, appt *model.Appointment) error
	Delete(ctx context.Context, tenantID, id string) error
	Get(ctx context.Context, tenantID, id string) (model.Appointment, error)

	ListByTenant(ctx context.Context, tenantID string) ([]model.Appointment, error)
	ListByPatient(ctx context.Context, tenantID, patientID string) ([]model.Appointment, error)
	ListByPractitioner(ctx context.Context, tenantID, practitionerID string) ([]model.Appointment, error)

	// ListOccupying returns occupying appointments for the practitioner
	// whose intervals intersect [from, to), ordered by start time.
	ListOccupying(ctx context.Context, tenantID, practitionerID string, from, to time.Time) ([]model.Appointment, error)

	// FindConflict returns the id of an occupying appointment for the
	// same practitioner whose [start, end) interval intersects the
	// candidate's, excluding excludeID (the appointment being updated).
	FindConflict(ctx context.Context, tenantID, practitionerID string, start, end time.Time, excludeID string) (string, bool, error)
}

// PatientDirectory resolves patient references. Patients themselves are
// managed outside the scheduling engine.
type PatientDirectory interface {
	Exists(ctx context.Context, tenantID, patientID string) (bool, error)
	DisplayName(ctx context.Context, patientID string) (string, error)
}

// PractitionerDirectory resolves practitioner references and whether
// the practitioner holds a scheduling-eligible role.
type PractitionerDirectory interface {
	Exists(ctx context.Context, tenantID, practitionerID string) (bool, error)
	DisplayName(ctx context.Context, practitionerID string) (string, error)
	Bookable(ctx context.Context, tenantID, practitionerID string) (bool, error)
}

// HoursProvider yields the clinic's opening and closing instants for a
// tenant on a given date. A zero open and close means the clinic is
// closed that day.
type HoursProvider interface {
	Hours(ctx context.Context, tenantID string, date time.Time) (open, close time.Time, err error)
}

// Catalog supplies the default duration for a procedure category, used
// when a caller omits an explicit end time.
type Catalog interface {
	DefaultDuration(t model.AppointmentType) time.Duration
}
