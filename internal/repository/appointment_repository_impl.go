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

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx), id)
}

func (r *appointmentRepository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *appointmentRepository) first(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error) {
	query := db.WithContext(ctx).Model(&entity.Appointment{})

	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.ProviderID != nil {
		query = query.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("appointment_date >= ?", filter.From.Format(entity.DateLayout))
	}
	if filter.To != nil {
		query = query.Where("appointment_date <= ?", filter.To.Format(entity.DateLayout))
	}

	if filter.Ascending {
		query = query.Order("appointment_date ASC, appointment_time ASC")
	} else {
		query = query.Order("appointment_date DESC, appointment_time DESC")
	}

	var appointments []entity.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) ExistsActiveAtSlot(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	query := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("provider_id = ? AND appointment_date = ? AND appointment_time = ? AND status <> ?",
			providerID, date.Format(entity.DateLayout), timeOfDay, entity.AppointmentStatusCancelled)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *appointmentRepository) FindBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	var times []string
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("provider_id = ? AND appointment_date = ? AND status <> ?",
			providerID, date.Format(entity.DateLayout), entity.AppointmentStatusCancelled).
		Pluck("appointment_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *appointmentRepository) Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Save(appointment).Error
}
