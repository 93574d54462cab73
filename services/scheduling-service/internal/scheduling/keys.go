package scheduling

import "fmt"

// Cache key families. Detail entries hold a single shaped appointment;
// list entries hold the unfiltered shaped collection for their owner.
func detailKey(tenantID, apptID string) string {
	return fmt.Sprintf("appt:%s:%s", tenantID, apptID)
}

func patientListKey(tenantID, patientID string) string {
	return fmt.Sprintf("appts:patient:%s:%s", tenantID, patientID)
}

func practitionerListKey(tenantID, practitionerID string) string {
	return fmt.Sprintf("appts:practitioner:%s:%s", tenantID, practitionerID)
}

func globalListKey(tenantID string) string {
	return fmt.Sprintf("appts:all:%s", tenantID)
}
