package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntryStatus represents where a checked-in patient is in the day's line
type QueueEntryStatus string

const (
	QueueStatusWaiting        QueueEntryStatus = "waiting"
	QueueStatusCalled         QueueEntryStatus = "called"
	QueueStatusInConsultation QueueEntryStatus = "in_consultation"
	QueueStatusCompleted      QueueEntryStatus = "completed"
)

// IsValid reports whether s is one of the known queue statuses
func (s QueueEntryStatus) IsValid() bool {
	switch s {
	case QueueStatusWaiting, QueueStatusCalled, QueueStatusInConsultation, QueueStatusCompleted:
		return true
	}
	return false
}

// QueueEntry is created at check-in. Positions are unique per service date and never reused.
// ProviderID and PatientID are copied from the appointment so queue reads need no join.
type QueueEntry struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"appointment_id"`
	ProviderID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"provider_id"`
	PatientID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"patient_id"`
	ServiceDate       time.Time        `gorm:"type:date;not null;uniqueIndex:idx_queue_entries_date_position,priority:1" json:"service_date"`
	QueuePosition     int              `gorm:"not null;uniqueIndex:idx_queue_entries_date_position,priority:2" json:"queue_position"`
	EstimatedWaitTime int              `gorm:"not null" json:"estimated_wait_time"`
	CheckedInAt       time.Time        `gorm:"not null" json:"checked_in_at"`
	Status            QueueEntryStatus `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// IsActive reports whether the entry still counts towards patients ahead
func (e *QueueEntry) IsActive() bool {
	return e.Status == QueueStatusWaiting || e.Status == QueueStatusCalled
}

// IsWaiting checks if entry is waiting to be called
func (e *QueueEntry) IsWaiting() bool {
	return e.Status == QueueStatusWaiting
}

// Call marks the entry as called by the provider
func (e *QueueEntry) Call() {
	e.Status = QueueStatusCalled
}

// IsOnDate compares calendar days only
func (e *QueueEntry) IsOnDate(day time.Time) bool {
	return e.ServiceDate.Format(DateLayout) == day.Format(DateLayout)
}

// Follow copies the appointment's current provider and patient onto the entry
func (e *QueueEntry) Follow(appointment *Appointment) {
	e.ProviderID = appointment.ProviderID
	e.PatientID = appointment.PatientID
}

// Refresh resets the entry after a repeated check-in; the position is kept
func (e *QueueEntry) Refresh(now time.Time) {
	e.CheckedInAt = now
	e.Status = QueueStatusWaiting
}
