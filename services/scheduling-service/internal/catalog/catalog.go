package catalog

import (
	"time"

	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
)

const fallbackDuration = 30 * time.Minute

// Static maps procedure categories to their default visit length, used
// when a booking request omits an explicit end time.
type Static struct {
	durations map[model.AppointmentType]time.Duration
}

func NewStatic() *Static {
	return &Static{
		durations: map[model.AppointmentType]time.Duration{
			model.TypeConsultation: 30 * time.Minute,
			model.TypeCheckup:      30 * time.Minute,
			model.TypeProcedure:    60 * time.Minute,
			model.TypeSurgery:      2 * time.Hour,
			model.TypeFollowUp:     20 * time.Minute,
			model.TypeEmergency:    time.Hour,
		},
	}
}

func (c *Static) DefaultDuration(t model.AppointmentType) time.Duration {
	if d, ok := c.durations[t]; ok {
		return d
	}
	return fallbackDuration
}
