package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type UpdateQueueEntryRequest struct {
	Status string `json:"status" validate:"required,oneof=in_consultation completed"`
}

// Response DTOs

type QueueEntryResponse struct {
	ID                uuid.UUID `json:"id"`
	AppointmentID     uuid.UUID `json:"appointment_id"`
	ProviderID        uuid.UUID `json:"provider_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	ServiceDate       string    `json:"service_date"`
	QueuePosition     int       `json:"queue_position"`
	EstimatedWaitTime int       `json:"estimated_wait_time"`
	CheckedInAt       time.Time `json:"checked_in_at"`
	Status            string    `json:"status"`
}

type QueueStatusResponse struct {
	AppointmentID     uuid.UUID `json:"appointment_id"`
	QueuePosition     int       `json:"queue_position"`
	PatientsAhead     int64     `json:"patients_ahead"`
	EstimatedWaitTime int       `json:"estimated_wait_time"`
	Status            string    `json:"status"`
	CheckedInAt       time.Time `json:"checked_in_at"`
}

type CallNextResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	QueueEntry  QueueEntryResponse  `json:"queue_entry"`
}

type QueueListResponse struct {
	ProviderID uuid.UUID            `json:"provider_id"`
	Date       string               `json:"date"`
	Entries    []QueueEntryResponse `json:"entries"`
	Total      int                  `json:"total"`
}
