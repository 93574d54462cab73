package storage

import (
	"context"
	"errors"
	"time"

	"github.com/curaplan/clinicops/libs/db"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const appointmentColumns = `
	id, tenant_id, patient_id, practitioner_id, start_time, end_time,
	status, appointment_type, urgency, COALESCE(reason, ''), COALESCE(notes, ''),
	COALESCE(cancellation_reason, ''), cancelled_at, created_at, updated_at`

// occupyingStatuses mirrors model.Status.Occupies for SQL predicates.
// The same set backs the exclusion constraint in the schema.
const occupyingStatuses = `('scheduled', 'confirmed', 'in-progress')`

// AppointmentRepository is the pgx-backed scheduling.Store. All queries
// are tenant-scoped; conflicts raised by the appointments exclusion
// constraint are translated to *scheduling.ConflictError so the engine
// treats the constraint as the authoritative race arbiter.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Insert(ctx context.Context, appt *model.Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments
			(id, tenant_id, patient_id, practitioner_id, start_time, end_time,
			 status, appointment_type, urgency, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, appt.ID, appt.TenantID, appt.PatientID, appt.PractitionerID, appt.Start, appt.End,
		string(appt.Status), string(appt.Type), string(appt.Urgency), appt.Reason, appt.Notes,
		appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return classify("insert", err)
	}
	return nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $3,
			practitioner_id = $4,
			start_time = $5,
			end_time = $6,
			status = $7,
			appointment_type = $8,
			urgency = $9,
			reason = $10,
			notes = $11,
			cancellation_reason = $12,
			cancelled_at = $13,
			updated_at = $14
		WHERE id = $1 AND tenant_id = $2
	`, appt.ID, appt.TenantID, appt.PatientID, appt.PractitionerID, appt.Start, appt.End,
		string(appt.Status), string(appt.Type), string(appt.Urgency), appt.Reason, appt.Notes,
		appt.CancelReason, appt.CancelledAt, appt.UpdatedAt)
	if err != nil {
		return classify("update", err)
	}
	if tag.RowsAffected() == 0 {
		return &scheduling.NotFoundError{Kind: "appointment", ID: appt.ID}
	}
	return nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		return classify("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return &scheduling.NotFoundError{Kind: "appointment", ID: id}
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, &scheduling.NotFoundError{Kind: "appointment", ID: id}
		}
		return model.Appointment{}, classify("get", err)
	}
	return appt, nil
}

func (r *AppointmentRepository) ListByTenant(ctx context.Context, tenantID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		ORDER BY start_time DESC
	`, tenantID)
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, tenantID, patientID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND patient_id = $2
		ORDER BY start_time DESC
	`, tenantID, patientID)
}

func (r *AppointmentRepository) ListByPractitioner(ctx context.Context, tenantID, practitionerID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND practitioner_id = $2
		ORDER BY start_time DESC
	`, tenantID, practitionerID)
}

func (r *AppointmentRepository) ListOccupying(ctx context.Context, tenantID, practitionerID string, from, to time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND practitioner_id = $2
			AND status IN `+occupyingStatuses+`
			AND start_time < $4
			AND end_time > $3
		ORDER BY start_time ASC
	`, tenantID, practitionerID, from, to)
}

func (r *AppointmentRepository) FindConflict(ctx context.Context, tenantID, practitionerID string, start, end time.Time, excludeID string) (string, bool, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id
		FROM appointments
		WHERE tenant_id = $1
			AND practitioner_id = $2
			AND status IN `+occupyingStatuses+`
			AND start_time < $4
			AND end_time > $3
			AND ($5 = '' OR id::text <> $5)
		ORDER BY start_time ASC
		LIMIT 1
	`, tenantID, practitionerID, start, end, excludeID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classify("find_conflict", err)
	}
	return id, true, nil
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, classify("list", err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, classify("list", rows.Err())
	}
	return appts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		appt        model.Appointment
		status      string
		apptType    string
		urgency     string
		cancelledAt *time.Time
	)
	err := row.Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.PatientID,
		&appt.PractitionerID,
		&appt.Start,
		&appt.End,
		&status,
		&apptType,
		&urgency,
		&appt.Reason,
		&appt.Notes,
		&appt.CancelReason,
		&cancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.Type = model.AppointmentType(apptType)
	appt.Urgency = model.Urgency(urgency)
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// classify maps driver errors onto the engine's typed errors. 23P01 is
// exclusion_violation: the appointments no-overlap constraint rejected
// a write that raced past the validator's pre-check.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return &scheduling.ConflictError{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &scheduling.StoreError{Op: op, Timeout: true, Err: err}
	}
	return &scheduling.StoreError{Op: op, Err: err}
}
