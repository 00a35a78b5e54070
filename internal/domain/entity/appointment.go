package entity

import (
	"time"

	"github.com/google/uuid"
)

// Date and time-of-day layouts used on the wire and in storage
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

// IsValid reports whether s is one of the known statuses
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is a booking of one patient with one provider at a date and time-of-day.
// (ProviderID, AppointmentDate, AppointmentTime) is unique among non-cancelled rows.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	ProviderID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"provider_id"`
	AppointmentDate time.Time         `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime string            `gorm:"type:varchar(5);not null" json:"appointment_time"`
	ToothID         *string           `gorm:"type:varchar(10)" json:"tooth_id,omitempty"`
	Symptoms        string            `gorm:"type:text" json:"symptoms,omitempty"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	AIDiagnosis     string            `gorm:"column:ai_diagnosis;type:text" json:"ai_diagnosis,omitempty"`
	UrgencyScore    float64           `gorm:"not null;default:5" json:"urgency_score"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	TreatmentNotes  string            `gorm:"type:text" json:"treatment_notes,omitempty"`
	Prescription    string            `gorm:"type:text" json:"prescription,omitempty"`
	FollowUpDate    *time.Time        `gorm:"type:date" json:"follow_up_date,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsOnDate compares calendar days only
func (a *Appointment) IsOnDate(day time.Time) bool {
	return a.AppointmentDate.Format(DateLayout) == day.Format(DateLayout)
}

// SameSlot reports whether both appointments occupy the same provider slot
func (a *Appointment) SameSlot(other *Appointment) bool {
	return a.ProviderID == other.ProviderID &&
		a.IsOnDate(other.AppointmentDate) &&
		a.AppointmentTime == other.AppointmentTime
}

// DateOnly strips the clock and location from t, keeping the calendar day it shows.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// NormalizeTime parses an HH:MM value and returns it zero-padded
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(TimeLayout), nil
}
