package audit

import "context"

// Event types double as Kafka topic names (event per topic).
const (
	EventAppointmentBooked    = "scheduling.appointment.booked.v1"
	EventAppointmentUpdated   = "scheduling.appointment.updated.v1"
	EventAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	EventAppointmentDeleted   = "scheduling.appointment.deleted.v1"
)

// Event is the audit envelope for an appointment write.
type Event struct {
	EventType     string
	AppointmentID string
	TenantID      string
	Payload       []byte
}

// Sink receives write notifications. Recording is fire-and-forget: a
// sink must never fail the operation that produced the event.
type Sink interface {
	Record(ctx context.Context, evt Event)
}

// NopSink drops every event. Used in tests and when auditing is
// disabled.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}
