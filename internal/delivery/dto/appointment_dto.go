package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	ProviderID      uuid.UUID  `json:"provider_id" validate:"required"`
	AppointmentDate string     `json:"appointment_date" validate:"required,date"`
	AppointmentTime string     `json:"appointment_time" validate:"required,hhmm"`
	ToothID         *string    `json:"tooth_id,omitempty" validate:"omitempty,max=10"`
	Symptoms        string     `json:"symptoms,omitempty" validate:"max=2000"`
	Notes           string     `json:"notes,omitempty" validate:"max=2000"`
	UrgencyScore    *float64   `json:"urgency_score,omitempty"`
	AIDiagnosis     *string    `json:"ai_diagnosis,omitempty"`
	PreferredDate   *string    `json:"preferred_date,omitempty" validate:"omitempty,date"`
}

// PatientUpdateRequest lists the only fields a patient may change
type PatientUpdateRequest struct {
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Symptoms *string `json:"symptoms,omitempty" validate:"omitempty,max=2000"`
}

// ProviderUpdateRequest lists the only fields a provider may change
type ProviderUpdateRequest struct {
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled"`
	TreatmentNotes *string `json:"treatment_notes,omitempty"`
	Prescription   *string `json:"prescription,omitempty"`
	FollowUpDate   *string `json:"follow_up_date,omitempty" validate:"omitempty,date"`
}

type AdminUpdateRequest struct {
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	ProviderID      *uuid.UUID `json:"provider_id,omitempty"`
	AppointmentDate *string    `json:"appointment_date,omitempty" validate:"omitempty,date"`
	AppointmentTime *string    `json:"appointment_time,omitempty" validate:"omitempty,hhmm"`
	ToothID         *string    `json:"tooth_id,omitempty" validate:"omitempty,max=10"`
	Symptoms        *string    `json:"symptoms,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	AIDiagnosis     *string    `json:"ai_diagnosis,omitempty"`
	UrgencyScore    *float64   `json:"urgency_score,omitempty"`
	Status          *string    `json:"status,omitempty" validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled"`
	TreatmentNotes  *string    `json:"treatment_notes,omitempty"`
	Prescription    *string    `json:"prescription,omitempty"`
	FollowUpDate    *string    `json:"follow_up_date,omitempty" validate:"omitempty,date"`
}

type ListAppointmentsRequest struct {
	Status string `validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled"`
	From   string `validate:"omitempty,date"`
	To     string `validate:"omitempty,date"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	ToothID         *string   `json:"tooth_id,omitempty"`
	Symptoms        string    `json:"symptoms,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	AIDiagnosis     string    `json:"ai_diagnosis,omitempty"`
	UrgencyScore    float64   `json:"urgency_score"`
	Status          string    `json:"status"`
	TreatmentNotes  string    `json:"treatment_notes,omitempty"`
	Prescription    string    `json:"prescription,omitempty"`
	FollowUpDate    *string   `json:"follow_up_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateAppointmentResponse struct {
	Appointment      AppointmentResponse  `json:"appointment"`
	AIDiagnosis      string               `json:"ai_diagnosis"`
	Recommendations  []string             `json:"recommendations,omitempty"`
	RecommendedSlots []RankedSlotResponse `json:"recommended_slots"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
