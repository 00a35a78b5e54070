package usecase

import (
	"context"
	"time"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	repositoryimpl "clinic-backend/internal/repository"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/apperror"
	"clinic-backend/pkg/timezone"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrQueueEntryNotFound = apperror.NotFound("patient has not checked in")
	ErrQueueEmpty         = apperror.NotFound("no patients in queue")
	ErrCheckInNotToday    = apperror.InvalidState("can only check in for today's appointments")
	ErrCheckInCancelled   = apperror.InvalidState("cannot check in a cancelled appointment")
	ErrQueueForbidden     = apperror.Forbidden("you are not allowed to manage this queue")
	ErrInvalidQueueStatus = apperror.Validation("queue status must be in_consultation or completed")
)

const (
	auditEntityQueueEntry = "queue_entry"

	// A check-in that loses a race on a unique index is retried once
	checkInAttempts = 2
)

type QueueUsecase interface {
	CheckIn(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error)
	CallNext(ctx context.Context, actor entity.Actor, providerID uuid.UUID) (*dto.CallNextResponse, error)
	GetStatus(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.QueueStatusResponse, error)
	UpdateEntryStatus(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID, req *dto.UpdateQueueEntryRequest) (*dto.QueueEntryResponse, error)
	ListQueue(ctx context.Context, actor entity.Actor, providerID uuid.UUID, date string) (*dto.QueueListResponse, error)
}

type queueUsecase struct {
	tx              repository.Transactor
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	queueRepo       repository.QueueEntryRepository
	auditService    service.AuditService
	sequencer       service.QueueSequencer
	publisher       service.Publisher
	clock           timezone.Clock
	defaultWait     int

	// Serialises check-ins of the same appointment within this instance
	appointmentMu *service.KeyedMutex
}

func NewQueueUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	queueRepo repository.QueueEntryRepository,
	auditService service.AuditService,
	sequencer service.QueueSequencer,
	publisher service.Publisher,
	clock timezone.Clock,
	defaultWaitMinutes int,
	appointmentMu *service.KeyedMutex,
) QueueUsecase {
	return &queueUsecase{
		tx:              tx,
		log:             log,
		appointmentRepo: appointmentRepo,
		queueRepo:       queueRepo,
		auditService:    auditService,
		sequencer:       sequencer,
		publisher:       publisher,
		clock:           clock,
		defaultWait:     defaultWaitMinutes,
		appointmentMu:   appointmentMu,
	}
}

// CheckIn places a patient in today's queue.
// A repeated check-in refreshes the existing entry and keeps its position.
func (u *queueUsecase) CheckIn(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error) {
	unlock := u.appointmentMu.Lock(appointmentID.String())
	defer unlock()

	appointment, err := u.appointmentRepo.FindByID(ctx, u.tx.Conn(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !actor.CanView(appointment) {
		return nil, ErrQueueForbidden
	}
	if appointment.IsCancelled() {
		return nil, ErrCheckInCancelled
	}

	today := timezone.Today(u.clock)
	if !appointment.IsOnDate(today) {
		return nil, ErrCheckInNotToday
	}

	var entry *entity.QueueEntry
	var refreshed bool
	for attempt := 1; attempt <= checkInAttempts; attempt++ {
		entry, refreshed, err = u.checkIn(ctx, actor, appointment, today)
		if err == nil || !repositoryimpl.IsUniqueViolation(err) {
			break
		}
		u.log.Warnf("Check-in of appointment %s collided on attempt %d: %+v", appointmentID, attempt, err)
	}
	if err != nil {
		return nil, err
	}

	result := converter.QueueEntryToResponse(entry)
	u.publisher.Publish(ctx, service.ProviderChannel(entry.ProviderID), service.EventPatientCheckedIn, result)

	u.log.Infof("Patient checked in: appointment=%s, position=%d, refreshed=%t", appointmentID, entry.QueuePosition, refreshed)

	return result, nil
}

func (u *queueUsecase) checkIn(ctx context.Context, actor entity.Actor, appointment *entity.Appointment, today time.Time) (*entity.QueueEntry, bool, error) {
	var entry *entity.QueueEntry
	var refreshed bool

	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		now := u.clock.Now()

		existing, err := u.queueRepo.FindByAppointmentID(ctx, tx, appointment.ID)
		if err != nil {
			u.log.Warnf("Failed to find queue entry for appointment %s: %+v", appointment.ID, err)
			return err
		}

		if existing != nil {
			// An entry left on another day holds that day's position, not one in today's line
			if !existing.IsOnDate(today) {
				position, err := u.sequencer.NextPosition(ctx, today)
				if err != nil {
					u.log.Warnf("Failed to assign queue position for %s: %+v", today.Format(entity.DateLayout), err)
					return err
				}
				existing.ServiceDate = today
				existing.QueuePosition = position
			}
			existing.Follow(appointment)
			existing.Refresh(now)
			if err := u.queueRepo.Update(ctx, tx, existing); err != nil {
				u.log.Warnf("Failed to refresh queue entry %s: %+v", existing.ID, err)
				return err
			}
			entry, refreshed = existing, true
		} else {
			// Positions consumed by a rolled back insert are skipped, never reused
			position, err := u.sequencer.NextPosition(ctx, today)
			if err != nil {
				u.log.Warnf("Failed to assign queue position for %s: %+v", today.Format(entity.DateLayout), err)
				return err
			}

			entry = &entity.QueueEntry{
				AppointmentID:     appointment.ID,
				ProviderID:        appointment.ProviderID,
				PatientID:         appointment.PatientID,
				ServiceDate:       today,
				QueuePosition:     position,
				EstimatedWaitTime: u.defaultWait,
				CheckedInAt:       now,
				Status:            entity.QueueStatusWaiting,
			}
			if err := u.queueRepo.Create(ctx, tx, entry); err != nil {
				return err
			}
		}

		return u.auditService.LogCreate(ctx, tx, &actor.UserID, entity.AuditActionQueueCheckIn,
			auditEntityQueueEntry, entry.ID.String(), converter.QueueEntryToResponse(entry))
	})

	return entry, refreshed, err
}

// CallNext moves the provider's lowest-positioned waiting patient to called
func (u *queueUsecase) CallNext(ctx context.Context, actor entity.Actor, providerID uuid.UUID) (*dto.CallNextResponse, error) {
	if !canManageQueue(actor, providerID) {
		return nil, ErrQueueForbidden
	}

	today := timezone.Today(u.clock)

	var entry *entity.QueueEntry
	var appointment *entity.Appointment
	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = u.queueRepo.FindNextWaiting(ctx, tx, providerID, today)
		if err != nil {
			u.log.Warnf("Failed to find next waiting patient for provider %s: %+v", providerID, err)
			return err
		}
		if entry == nil {
			return ErrQueueEmpty
		}

		appointment, err = u.appointmentRepo.FindByID(ctx, tx, entry.AppointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", entry.AppointmentID, err)
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}

		before := converter.QueueEntryToResponse(entry)
		entry.Call()
		if err := u.queueRepo.Update(ctx, tx, entry); err != nil {
			u.log.Warnf("Failed to call queue entry %s: %+v", entry.ID, err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionQueueCall,
			auditEntityQueueEntry, entry.ID.String(), before, converter.QueueEntryToResponse(entry))
	})
	if err != nil {
		return nil, err
	}

	result := &dto.CallNextResponse{
		Appointment: *converter.AppointmentToResponse(appointment),
		QueueEntry:  *converter.QueueEntryToResponse(entry),
	}
	u.publisher.Publish(ctx, service.PatientChannel(entry.PatientID), service.EventPatientCalled, result)

	u.log.Infof("Patient called: provider=%s, appointment=%s, position=%d", providerID, entry.AppointmentID, entry.QueuePosition)

	return result, nil
}

func (u *queueUsecase) GetStatus(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.QueueStatusResponse, error) {
	db := u.tx.Conn(ctx)

	appointment, err := u.appointmentRepo.FindByID(ctx, db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !actor.CanView(appointment) {
		return nil, ErrAppointmentForbidden
	}

	entry, err := u.queueRepo.FindByAppointmentID(ctx, db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry for appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}

	ahead, err := u.queueRepo.CountAhead(ctx, db, entry.ServiceDate, entry.QueuePosition)
	if err != nil {
		u.log.Warnf("Failed to count patients ahead of %s: %+v", entry.ID, err)
		return nil, err
	}

	return converter.QueueStatusToResponse(entry, ahead), nil
}

// UpdateEntryStatus advances a called patient and mirrors the change onto the appointment
func (u *queueUsecase) UpdateEntryStatus(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID, req *dto.UpdateQueueEntryRequest) (*dto.QueueEntryResponse, error) {
	var appointmentStatus entity.AppointmentStatus
	switch entity.QueueEntryStatus(req.Status) {
	case entity.QueueStatusInConsultation:
		appointmentStatus = entity.AppointmentStatusInProgress
	case entity.QueueStatusCompleted:
		appointmentStatus = entity.AppointmentStatusCompleted
	default:
		return nil, ErrInvalidQueueStatus
	}

	var entry *entity.QueueEntry
	var appointment *entity.Appointment
	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		appointment, err = u.appointmentRepo.FindByIDForUpdate(ctx, tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if !canManageQueue(actor, appointment.ProviderID) {
			return ErrQueueForbidden
		}

		entry, err = u.queueRepo.FindByAppointmentID(ctx, tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to find queue entry for appointment %s: %+v", appointmentID, err)
			return err
		}
		if entry == nil {
			return ErrQueueEntryNotFound
		}

		before := converter.QueueEntryToResponse(entry)
		entry.Status = entity.QueueEntryStatus(req.Status)
		if err := u.queueRepo.Update(ctx, tx, entry); err != nil {
			u.log.Warnf("Failed to update queue entry %s: %+v", entry.ID, err)
			return err
		}

		appointment.Status = appointmentStatus
		appointment.UpdatedAt = u.clock.Now()
		if err := u.appointmentRepo.Update(ctx, tx, appointment); err != nil {
			u.log.Warnf("Failed to sync appointment %s status: %+v", appointmentID, err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionQueueUpdate,
			auditEntityQueueEntry, entry.ID.String(), before, converter.QueueEntryToResponse(entry))
	})
	if err != nil {
		return nil, err
	}

	result := converter.QueueEntryToResponse(entry)
	u.publisher.Publish(ctx, service.ProviderChannel(entry.ProviderID), service.EventQueueUpdated, result)
	u.publisher.Publish(ctx, service.PatientChannel(entry.PatientID), service.EventQueueUpdated, result)

	u.log.Infof("Queue entry updated: appointment=%s, status=%s", appointmentID, entry.Status)

	return result, nil
}

// ListQueue returns a provider's entries for a date (today when empty) ordered by position
func (u *queueUsecase) ListQueue(ctx context.Context, actor entity.Actor, providerID uuid.UUID, date string) (*dto.QueueListResponse, error) {
	if !canManageQueue(actor, providerID) {
		return nil, ErrQueueForbidden
	}

	serviceDate := timezone.Today(u.clock)
	if date != "" {
		parsed, err := entity.ParseDate(date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		serviceDate = parsed
	}

	entries, err := u.queueRepo.FindByProviderAndDate(ctx, u.tx.Conn(ctx), providerID, serviceDate)
	if err != nil {
		u.log.Warnf("Failed to list queue for provider %s: %+v", providerID, err)
		return nil, err
	}

	return &dto.QueueListResponse{
		ProviderID: providerID,
		Date:       serviceDate.Format(entity.DateLayout),
		Entries:    converter.QueueEntriesToResponses(entries),
		Total:      len(entries),
	}, nil
}

func canManageQueue(actor entity.Actor, providerID uuid.UUID) bool {
	return actor.IsAdmin() || (actor.IsDoctor() && actor.UserID == providerID)
}
