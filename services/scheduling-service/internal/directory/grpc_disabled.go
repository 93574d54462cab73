//go:build !protogen

package directory

import (
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
)

// NewGRPC returns nil directories in builds without generated proto
// stubs; callers fall back to the Postgres-backed directories.
func NewGRPC(_ string) (scheduling.PatientDirectory, scheduling.PractitionerDirectory, error) {
	return nil, nil, nil
}
