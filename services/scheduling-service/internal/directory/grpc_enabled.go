//go:build protogen

package directory

import (
	"context"
	"time"

	"github.com/curaplan/clinicops/libs/grpcx"
	directoryv1 "github.com/curaplan/clinicops/protos/gen/directory/v1"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
)

// NewGRPC dials the platform directory service. Returns nil directories
// when no address is configured so callers fall back to Postgres.
func NewGRPC(addr string) (scheduling.PatientDirectory, scheduling.PractitionerDirectory, error) {
	if addr == "" {
		return nil, nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, nil, err
	}
	client := directoryv1.NewDirectoryServiceClient(conn)
	return &grpcPatients{client: client}, &grpcPractitioners{client: client}, nil
}

type grpcPatients struct {
	client directoryv1.DirectoryServiceClient
}

func (d *grpcPatients) Exists(ctx context.Context, tenantID, patientID string) (bool, error) {
	resp, err := d.client.GetPatient(ctx, &directoryv1.GetPatientRequest{TenantId: tenantID, PatientId: patientID})
	if err != nil {
		return false, err
	}
	return resp.GetFound(), nil
}

func (d *grpcPatients) DisplayName(ctx context.Context, patientID string) (string, error) {
	resp, err := d.client.GetPatient(ctx, &directoryv1.GetPatientRequest{PatientId: patientID})
	if err != nil {
		return "", err
	}
	return resp.GetDisplayName(), nil
}

type grpcPractitioners struct {
	client directoryv1.DirectoryServiceClient
}

func (d *grpcPractitioners) Exists(ctx context.Context, tenantID, practitionerID string) (bool, error) {
	resp, err := d.client.GetPractitioner(ctx, &directoryv1.GetPractitionerRequest{TenantId: tenantID, PractitionerId: practitionerID})
	if err != nil {
		return false, err
	}
	return resp.GetFound(), nil
}

func (d *grpcPractitioners) DisplayName(ctx context.Context, practitionerID string) (string, error) {
	resp, err := d.client.GetPractitioner(ctx, &directoryv1.GetPractitionerRequest{PractitionerId: practitionerID})
	if err != nil {
		return "", err
	}
	return resp.GetDisplayName(), nil
}

func (d *grpcPractitioners) Bookable(ctx context.Context, tenantID, practitionerID string) (bool, error) {
	resp, err := d.client.GetPractitioner(ctx, &directoryv1.GetPractitionerRequest{TenantId: tenantID, PractitionerId: practitionerID})
	if err != nil {
		return false, err
	}
	return resp.GetFound() && resp.GetSchedulable(), nil
}
