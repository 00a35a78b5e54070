package repository

import (
	"context"
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueEntryRepository interface {
	Create(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error
	FindByAppointmentID(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error)
	// FindNextWaiting locks the waiting entry with the smallest position for the provider on the date
	FindNextWaiting(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) (*entity.QueueEntry, error)
	FindByProviderAndDate(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) ([]entity.QueueEntry, error)
	// CountAhead counts waiting or called entries on the date with a smaller position
	CountAhead(ctx context.Context, db *gorm.DB, serviceDate time.Time, position int) (int64, error)
	MaxPosition(ctx context.Context, db *gorm.DB, serviceDate time.Time) (int, error)
	Update(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error
	Delete(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error
}
