package model

import (
	"fmt"
	"time"
)

// Status is the closed set of appointment lifecycle states.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

var statusTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusTransitions[s]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Occupies reports whether an appointment in this status blocks its
// time slot for conflict purposes.
func (s Status) Occupies() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Urgency classifies how soon the patient needs to be seen.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

func ParseUrgency(raw string) (Urgency, error) {
	switch u := Urgency(raw); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return u, nil
	}
	return "", fmt.Errorf("unknown urgency %q", raw)
}

// AppointmentType is the procedure category booked.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeCheckup      AppointmentType = "checkup"
	TypeProcedure    AppointmentType = "procedure"
	TypeSurgery      AppointmentType = "surgery"
	TypeFollowUp     AppointmentType = "followup"
	TypeEmergency    AppointmentType = "emergency"
)

func ParseAppointmentType(raw string) (AppointmentType, error) {
	switch t := AppointmentType(raw); t {
	case TypeConsultation, TypeCheckup, TypeProcedure, TypeSurgery, TypeFollowUp, TypeEmergency:
		return t, nil
	}
	return "", fmt.Errorf("unknown appointment type %q", raw)
}

type Appointment struct {
	ID             string
	TenantID       string
	PatientID      string
	PractitionerID string
	Start          time.Time
	End            time.Time
	Status         Status
	Type           AppointmentType
	Urgency        Urgency
	Reason         string
	Notes          string
	CancelReason   string
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

func (a Appointment) Occupies() bool {
	return a.Status.Occupies()
}

// Overlaps applies half-open interval semantics: [a.Start, a.End) and
// [b.Start, b.End) conflict iff a.Start < b.End && b.Start < a.End.
// Appointments that touch at a boundary do not overlap.
func (a Appointment) Overlaps(b Appointment) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
