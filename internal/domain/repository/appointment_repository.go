package repository

import (
	"context"
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	// FindByIDForUpdate row-locks the appointment until the transaction ends
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error)
	// ExistsActiveAtSlot reports whether a non-cancelled appointment holds the slot.
	// excludeID skips the appointment being edited.
	ExistsActiveAtSlot(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error)
	// FindBookedTimes returns HH:MM values held by non-cancelled appointments
	FindBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error)
	Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
}
