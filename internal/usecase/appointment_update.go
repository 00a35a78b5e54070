package usecase

import (
	"time"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentUpdate is one of PatientUpdate, ProviderUpdate or AdminUpdate.
// Each variant decides who may send it and which fields it touches.
type AppointmentUpdate interface {
	authorize(actor entity.Actor, appointment *entity.Appointment) error
	apply(appointment *entity.Appointment) error
}

// PatientUpdate carries the fields a patient may edit on their own appointment
type PatientUpdate dto.PatientUpdateRequest

// ProviderUpdate carries the clinical fields a provider may edit on their own appointment
type ProviderUpdate dto.ProviderUpdateRequest

// AdminUpdate may change any field, including a reschedule
type AdminUpdate dto.AdminUpdateRequest

func (p PatientUpdate) authorize(actor entity.Actor, appointment *entity.Appointment) error {
	if !actor.IsPatient() || appointment.PatientID != actor.UserID {
		return ErrUpdateNotAllowed
	}
	return nil
}

func (p PatientUpdate) apply(appointment *entity.Appointment) error {
	if p.Notes != nil {
		appointment.Notes = *p.Notes
	}
	if p.Symptoms != nil {
		appointment.Symptoms = *p.Symptoms
	}
	return nil
}

func (p ProviderUpdate) authorize(actor entity.Actor, appointment *entity.Appointment) error {
	if !actor.IsDoctor() || appointment.ProviderID != actor.UserID {
		return ErrUpdateNotAllowed
	}
	return nil
}

func (p ProviderUpdate) apply(appointment *entity.Appointment) error {
	if p.Status != nil {
		status, err := parseStatus(*p.Status)
		if err != nil {
			return err
		}
		appointment.Status = status
	}
	if p.TreatmentNotes != nil {
		appointment.TreatmentNotes = *p.TreatmentNotes
	}
	if p.Prescription != nil {
		appointment.Prescription = *p.Prescription
	}
	if p.FollowUpDate != nil {
		followUp, err := parseOptionalDate(*p.FollowUpDate)
		if err != nil {
			return err
		}
		appointment.FollowUpDate = followUp
	}
	return nil
}

func (p AdminUpdate) authorize(actor entity.Actor, _ *entity.Appointment) error {
	if !actor.IsAdmin() {
		return ErrUpdateNotAllowed
	}
	return nil
}

func (p AdminUpdate) apply(appointment *entity.Appointment) error {
	if p.PatientID != nil {
		appointment.PatientID = *p.PatientID
	}
	if p.ProviderID != nil {
		appointment.ProviderID = *p.ProviderID
	}
	if p.AppointmentDate != nil {
		date, err := entity.ParseDate(*p.AppointmentDate)
		if err != nil {
			return ErrInvalidDate
		}
		appointment.AppointmentDate = date
	}
	if p.AppointmentTime != nil {
		timeOfDay, err := entity.NormalizeTime(*p.AppointmentTime)
		if err != nil {
			return ErrInvalidTime
		}
		appointment.AppointmentTime = timeOfDay
	}
	if p.ToothID != nil {
		if *p.ToothID == "" {
			appointment.ToothID = nil
		} else {
			tooth := *p.ToothID
			appointment.ToothID = &tooth
		}
	}
	if p.Symptoms != nil {
		appointment.Symptoms = *p.Symptoms
	}
	if p.Notes != nil {
		appointment.Notes = *p.Notes
	}
	if p.AIDiagnosis != nil {
		appointment.AIDiagnosis = *p.AIDiagnosis
	}
	if p.UrgencyScore != nil {
		appointment.UrgencyScore = *p.UrgencyScore
	}

	// Clinical fields share the provider's rules
	return ProviderUpdate{
		Status:         p.Status,
		TreatmentNotes: p.TreatmentNotes,
		Prescription:   p.Prescription,
		FollowUpDate:   p.FollowUpDate,
	}.apply(appointment)
}

// changedPatient returns the new patient of an admin update that reassigns the appointment
func changedPatient(update AppointmentUpdate, before *entity.Appointment) *uuid.UUID {
	admin, ok := update.(AdminUpdate)
	if !ok || admin.PatientID == nil || *admin.PatientID == before.PatientID {
		return nil
	}
	return admin.PatientID
}

func parseStatus(s string) (entity.AppointmentStatus, error) {
	status := entity.AppointmentStatus(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// An empty string clears the date
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	date, err := entity.ParseDate(s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &date, nil
}
