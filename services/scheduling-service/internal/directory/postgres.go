package directory

import (
	"context"
	"errors"

	"github.com/curaplan/clinicops/libs/db"
	"github.com/jackc/pgx/v5"
)

// The patient and practitioner registries live in the platform's CRUD
// tables; the scheduling engine only resolves references against them.

type PostgresPatients struct {
	pool *db.Pool
}

func NewPostgresPatients(pool *db.Pool) *PostgresPatients {
	return &PostgresPatients{pool: pool}
}

func (d *PostgresPatients) Exists(ctx context.Context, tenantID, patientID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1 AND tenant_id = $2)
	`, patientID, tenantID).Scan(&exists)
	return exists, err
}

func (d *PostgresPatients) DisplayName(ctx context.Context, patientID string) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx, `
		SELECT trim(first_name || ' ' || last_name) FROM patients WHERE id = $1
	`, patientID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return name, err
}

type PostgresPractitioners struct {
	pool *db.Pool
}

func NewPostgresPractitioners(pool *db.Pool) *PostgresPractitioners {
	return &PostgresPractitioners{pool: pool}
}

func (d *PostgresPractitioners) Exists(ctx context.Context, tenantID, practitionerID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM practitioners WHERE id = $1 AND tenant_id = $2)
	`, practitionerID, tenantID).Scan(&exists)
	return exists, err
}

func (d *PostgresPractitioners) DisplayName(ctx context.Context, practitionerID string) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx, `
		SELECT trim(first_name || ' ' || last_name) FROM practitioners WHERE id = $1
	`, practitionerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// Bookable reports whether the practitioner holds a role that can own
// calendar slots. Administrative roles exist in the same table but are
// not schedulable.
func (d *PostgresPractitioners) Bookable(ctx context.Context, tenantID, practitionerID string) (bool, error) {
	var bookable bool
	err := d.pool.QueryRow(ctx, `
		SELECT role IN ('doctor', 'dentist', 'nurse-practitioner', 'therapist')
		FROM practitioners
		WHERE id = $1 AND tenant_id = $2
	`, practitionerID, tenantID).Scan(&bookable)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return bookable, err
}
