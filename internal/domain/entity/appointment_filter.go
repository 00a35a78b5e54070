package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter is a domain-level filter for listing appointments.
// Used by repository layer to avoid coupling with delivery DTOs.
type AppointmentFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Status     AppointmentStatus
	From       *time.Time
	To         *time.Time
	Ascending  bool // order by date/time ascending instead of descending
}
