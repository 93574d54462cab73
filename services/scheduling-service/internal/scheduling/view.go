package scheduling

import (
	"time"

	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
)

// AppointmentView is the read-side shape: the record plus denormalized
// display fields resolved from the directories. This is what the cache
// stores and what list/get return.
type AppointmentView struct {
	ID               string                `json:"id"`
	TenantID         string                `json:"tenant_id"`
	PatientID        string                `json:"patient_id"`
	PatientName      string                `json:"patient_name,omitempty"`
	PractitionerID   string                `json:"practitioner_id"`
	PractitionerName string                `json:"practitioner_name,omitempty"`
	Start            time.Time             `json:"start_time"`
	End              time.Time             `json:"end_time"`
	Status           model.Status          `json:"status"`
	Type             model.AppointmentType `json:"type"`
	Urgency          model.Urgency         `json:"urgency"`
	Reason           string                `json:"reason,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	CancelReason     string                `json:"cancellation_reason,omitempty"`
	CancelledAt      *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func viewOf(a model.Appointment, patientName, practitionerName string) AppointmentView {
	return AppointmentView{
		ID:               a.ID,
		TenantID:         a.TenantID,
		PatientID:        a.PatientID,
		PatientName:      patientName,
		PractitionerID:   a.PractitionerID,
		PractitionerName: practitionerName,
		Start:            a.Start,
		End:              a.End,
		Status:           a.Status,
		Type:             a.Type,
		Urgency:          a.Urgency,
		Reason:           a.Reason,
		Notes:            a.Notes,
		CancelReason:     a.CancelReason,
		CancelledAt:      a.CancelledAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ListFilter narrows the global appointment listing. Zero values mean
// "no constraint". Page is 1-based.
type ListFilter struct {
	Status         model.Status
	PractitionerID string
	PatientID      string
	From           time.Time
	To             time.Time
	Page           int
	Limit          int
}

func (f ListFilter) matches(v AppointmentView) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.PractitionerID != "" && v.PractitionerID != f.PractitionerID {
		return false
	}
	if f.PatientID != "" && v.PatientID != f.PatientID {
		return false
	}
	if !f.From.IsZero() && v.Start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !v.Start.Before(f.To) {
		return false
	}
	return true
}
