package repository

import (
	"context"
	"errors"
	"time"

	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type queueEntryRepository struct{}

func NewQueueEntryRepository() domainRepo.QueueEntryRepository {
	return &queueEntryRepository{}
}

func (r *queueEntryRepository) Create(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *queueEntryRepository) FindByAppointmentID(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindNextWaiting skips rows another caller already holds so two concurrent
// calls never return the same patient.
func (r *queueEntryRepository) FindNextWaiting(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("provider_id = ? AND service_date = ? AND status = ?",
			providerID, serviceDate.Format(entity.DateLayout), entity.QueueStatusWaiting).
		Order("queue_position ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindByProviderAndDate(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.WithContext(ctx).
		Where("provider_id = ? AND service_date = ?", providerID, serviceDate.Format(entity.DateLayout)).
		Order("queue_position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) CountAhead(ctx context.Context, db *gorm.DB, serviceDate time.Time, position int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.QueueEntry{}).
		Where("service_date = ? AND queue_position < ? AND status IN ?",
			serviceDate.Format(entity.DateLayout), position,
			[]entity.QueueEntryStatus{entity.QueueStatusWaiting, entity.QueueStatusCalled}).
		Count(&count).Error
	return count, err
}

func (r *queueEntryRepository) MaxPosition(ctx context.Context, db *gorm.DB, serviceDate time.Time) (int, error) {
	var max int
	err := db.WithContext(ctx).Model(&entity.QueueEntry{}).
		Where("service_date = ?", serviceDate.Format(entity.DateLayout)).
		Select("COALESCE(MAX(queue_position), 0)").
		Scan(&max).Error
	return max, err
}

func (r *queueEntryRepository) Update(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error {
	return db.WithContext(ctx).Save(entry).Error
}

func (r *queueEntryRepository) Delete(ctx context.Context, db *gorm.DB, entry *entity.QueueEntry) error {
	return db.WithContext(ctx).Delete(entry).Error
}
