package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DoctorProfile holds provider data used for scheduling.
// WorkingHours is stored as "HH:MM-HH:MM" in the available_hours column.
type DoctorProfile struct {
	UserID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	LicenseNumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"`
	Specialization  string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	ExperienceYears int             `gorm:"not null;default:0" json:"experience_years"`
	ConsultationFee decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"consultation_fee"`
	AvailableDays   string          `gorm:"type:varchar(100)" json:"available_days,omitempty"`
	WorkingHours    string          `gorm:"column:available_hours;type:varchar(20);not null;default:'09:00-17:00'" json:"available_hours"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// Hours parses the stored working-hours window
func (d *DoctorProfile) Hours() (WorkingHours, error) {
	return ParseWorkingHours(d.WorkingHours)
}
