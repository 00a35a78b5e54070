package entity

import "github.com/google/uuid"

// Actor is the authenticated caller of a usecase, taken from the access token
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsDoctor() bool {
	return a.Role == RoleDoctor
}

func (a Actor) IsPatient() bool {
	return a.Role == RolePatient
}

// Owns reports whether the actor is the patient or the provider of the appointment
func (a Actor) Owns(appointment *Appointment) bool {
	switch a.Role {
	case RolePatient:
		return appointment.PatientID == a.UserID
	case RoleDoctor:
		return appointment.ProviderID == a.UserID
	}
	return false
}

// CanView reports whether the actor may read the appointment or its queue entry
func (a Actor) CanView(appointment *Appointment) bool {
	return a.IsAdmin() || a.Owns(appointment)
}
