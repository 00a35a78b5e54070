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
	ErrAppointmentNotFound  = apperror.NotFound("appointment not found")
	ErrPatientNotFound      = apperror.NotFound("patient not found")
	ErrProviderNotFound     = apperror.NotFound("provider not found")
	ErrSlotTaken            = apperror.Conflict("time slot already booked")
	ErrInvalidDate          = apperror.Validation("date must be in YYYY-MM-DD format")
	ErrInvalidTime          = apperror.Validation("time must be in HH:MM format")
	ErrInvalidStatus        = apperror.Validation("invalid appointment status")
	ErrPatientIDRequired    = apperror.Validation("patient_id is required")
	ErrAppointmentForbidden = apperror.Forbidden("you do not have access to this appointment")
	ErrBookingNotAllowed    = apperror.Forbidden("only patients and admins can book appointments")
	ErrUpdateNotAllowed     = apperror.Forbidden("you are not allowed to make this change")
)

const auditEntityAppointment = "appointment"

type AppointmentUsecase interface {
	Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.CreateAppointmentResponse, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	List(ctx context.Context, actor entity.Actor, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error)
	Update(ctx context.Context, actor entity.Actor, id uuid.UUID, update AppointmentUpdate) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	tx              repository.Transactor
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	queueRepo       repository.QueueEntryRepository
	doctorRepo      repository.DoctorProfileRepository
	patientRepo     repository.PatientProfileRepository
	auditService    service.AuditService
	diagnoser       service.Diagnoser
	ranker          service.SlotRanker
	publisher       service.Publisher
	clock           timezone.Clock
}

func NewAppointmentUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	queueRepo repository.QueueEntryRepository,
	doctorRepo repository.DoctorProfileRepository,
	patientRepo repository.PatientProfileRepository,
	auditService service.AuditService,
	diagnoser service.Diagnoser,
	ranker service.SlotRanker,
	publisher service.Publisher,
	clock timezone.Clock,
) AppointmentUsecase {
	return &appointmentUsecase{
		tx:              tx,
		log:             log,
		appointmentRepo: appointmentRepo,
		queueRepo:       queueRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		auditService:    auditService,
		diagnoser:       diagnoser,
		ranker:          ranker,
		publisher:       publisher,
		clock:           clock,
	}
}

// Create books a slot with a provider.
//
// Flow:
// 1. Resolve the patient from the actor (admins name one explicitly)
// 2. Run the diagnoser when the caller sent no urgency score
// 3. In one transaction: lock the provider row, reject an occupied slot, insert, audit
// 4. After commit: notify the provider and attach slot recommendations from the preferred date
func (u *appointmentUsecase) Create(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.CreateAppointmentResponse, error) {
	patientID, err := resolvePatient(actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	date, err := entity.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	timeOfDay, err := entity.NormalizeTime(req.AppointmentTime)
	if err != nil {
		return nil, ErrInvalidTime
	}
	var preferredDate *time.Time
	if req.PreferredDate != nil && *req.PreferredDate != "" {
		preferred, err := entity.ParseDate(*req.PreferredDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		preferredDate = &preferred
	}

	appointment := &entity.Appointment{
		PatientID:       patientID,
		ProviderID:      req.ProviderID,
		AppointmentDate: date,
		AppointmentTime: timeOfDay,
		ToothID:         req.ToothID,
		Symptoms:        req.Symptoms,
		Notes:           req.Notes,
		Status:          entity.AppointmentStatusScheduled,
	}

	var diagnosis service.Diagnosis
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		patient, err := u.patientRepo.FindByUserID(ctx, tx, patientID)
		if err != nil {
			u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
			return err
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		diagnosis = u.diagnose(ctx, req, patient.MedicalHistory)
		appointment.UrgencyScore = diagnosis.UrgencyScore
		appointment.AIDiagnosis = diagnosis.Text

		// Holding the provider row serialises concurrent bookings against them
		provider, err := u.doctorRepo.LockByUserID(ctx, tx, req.ProviderID)
		if err != nil {
			u.log.Warnf("Failed to lock provider %s: %+v", req.ProviderID, err)
			return err
		}
		if provider == nil {
			return ErrProviderNotFound
		}

		taken, err := u.appointmentRepo.ExistsActiveAtSlot(ctx, tx, req.ProviderID, date, timeOfDay, nil)
		if err != nil {
			u.log.Warnf("Failed to check slot %s %s for provider %s: %+v", req.AppointmentDate, timeOfDay, req.ProviderID, err)
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
			if repositoryimpl.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			u.log.Warnf("Failed to create appointment: %+v", err)
			return err
		}

		return u.auditService.LogCreate(ctx, tx, &actor.UserID, entity.AuditActionAppointmentCreate,
			auditEntityAppointment, appointment.ID.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		return nil, err
	}

	result := converter.AppointmentToResponse(appointment)
	u.publisher.Publish(ctx, service.ProviderChannel(appointment.ProviderID), service.EventNewAppointment, result)

	u.log.Infof("Appointment created: id=%s, provider=%s, date=%s, time=%s, urgency=%.1f",
		appointment.ID, appointment.ProviderID, req.AppointmentDate, timeOfDay, appointment.UrgencyScore)

	recommended := u.ranker.RecommendSlots(ctx, appointment.ProviderID, appointment.UrgencyScore, preferredDate, service.DefaultHorizonDays)

	return &dto.CreateAppointmentResponse{
		Appointment:      *result,
		AIDiagnosis:      appointment.AIDiagnosis,
		Recommendations:  diagnosis.Recommendations,
		RecommendedSlots: converter.RankedSlotsToResponses(recommended),
	}, nil
}

// diagnose keeps whatever the caller supplied and fills the rest from the diagnoser
func (u *appointmentUsecase) diagnose(ctx context.Context, req *dto.CreateAppointmentRequest, history string) service.Diagnosis {
	diagnosis := service.Diagnosis{UrgencyScore: service.DefaultUrgencyScore}
	if req.Symptoms != "" && (req.UrgencyScore == nil || req.AIDiagnosis == nil) {
		tooth := ""
		if req.ToothID != nil {
			tooth = *req.ToothID
		}
		diagnosis = u.diagnoser.Diagnose(ctx, req.Symptoms, tooth, history)
	}

	if req.UrgencyScore != nil {
		diagnosis.UrgencyScore = *req.UrgencyScore
	}
	if req.AIDiagnosis != nil {
		diagnosis.Text = *req.AIDiagnosis
	}
	return diagnosis
}

func resolvePatient(actor entity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case actor.IsPatient():
		if requested != nil && *requested != actor.UserID {
			return uuid.Nil, ErrBookingNotAllowed
		}
		return actor.UserID, nil
	case actor.IsAdmin():
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, ErrPatientIDRequired
		}
		return *requested, nil
	default:
		return uuid.Nil, ErrBookingNotAllowed
	}
}

func (u *appointmentUsecase) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.tx.Conn(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !actor.CanView(appointment) {
		return nil, ErrAppointmentForbidden
	}

	return converter.AppointmentToResponse(appointment), nil
}

// List returns the appointments visible to the actor.
// Patients see their own newest first, providers their own in calendar order, admins everything.
func (u *appointmentUsecase) List(ctx context.Context, actor entity.Actor, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error) {
	filter := entity.AppointmentFilter{}
	switch {
	case actor.IsPatient():
		filter.PatientID = &actor.UserID
	case actor.IsDoctor():
		filter.ProviderID = &actor.UserID
		filter.Ascending = true
	case !actor.IsAdmin():
		return nil, ErrAppointmentForbidden
	}

	if req != nil {
		if req.Status != "" {
			status, err := parseStatus(req.Status)
			if err != nil {
				return nil, err
			}
			filter.Status = status
		}
		if req.From != "" {
			from, err := entity.ParseDate(req.From)
			if err != nil {
				return nil, ErrInvalidDate
			}
			filter.From = &from
		}
		if req.To != "" {
			to, err := entity.ParseDate(req.To)
			if err != nil {
				return nil, ErrInvalidDate
			}
			filter.To = &to
		}
	}

	appointments, err := u.appointmentRepo.FindAll(ctx, u.tx.Conn(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments for %s %s: %+v", actor.Role, actor.UserID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// Update applies one update variant under a row lock on the appointment.
// A change of slot, or reviving a cancelled appointment, re-runs the conflict check in the same transaction.
func (u *appointmentUsecase) Update(ctx context.Context, actor entity.Actor, id uuid.UUID, update AppointmentUpdate) (*dto.AppointmentResponse, error) {
	var before entity.Appointment
	var appointment *entity.Appointment

	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		appointment, err = u.appointmentRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", id, err)
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if err := update.authorize(actor, appointment); err != nil {
			return err
		}

		before = *appointment
		if err := update.apply(appointment); err != nil {
			return err
		}

		newPatient := changedPatient(update, &before)
		if newPatient != nil {
			patient, err := u.patientRepo.FindByUserID(ctx, tx, *newPatient)
			if err != nil {
				return err
			}
			if patient == nil {
				return ErrPatientNotFound
			}
		}

		if !appointment.IsCancelled() && (before.IsCancelled() || !appointment.SameSlot(&before)) {
			if err := u.ensureSlotFree(ctx, tx, appointment); err != nil {
				return err
			}
		}

		if newPatient != nil || !appointment.SameSlot(&before) {
			if err := u.syncQueueEntry(ctx, tx, appointment); err != nil {
				return err
			}
		}

		appointment.UpdatedAt = u.clock.Now()
		if err := u.appointmentRepo.Update(ctx, tx, appointment); err != nil {
			if repositoryimpl.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			u.log.Warnf("Failed to update appointment %s: %+v", id, err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionAppointmentUpdate,
			auditEntityAppointment, id.String(), converter.AppointmentToResponse(&before), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		return nil, err
	}

	result := converter.AppointmentToResponse(appointment)
	u.publisher.Publish(ctx, service.ProviderChannel(appointment.ProviderID), service.EventAppointmentUpdated, result)
	u.publisher.Publish(ctx, service.PatientChannel(appointment.PatientID), service.EventAppointmentUpdated, result)
	if before.ProviderID != appointment.ProviderID {
		u.publisher.Publish(ctx, service.ProviderChannel(before.ProviderID), service.EventAppointmentUpdated, result)
	}

	u.log.Infof("Appointment updated: id=%s, by=%s, status=%s", id, actor.Role, appointment.Status)

	return result, nil
}

func (u *appointmentUsecase) ensureSlotFree(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment) error {
	provider, err := u.doctorRepo.LockByUserID(ctx, tx, appointment.ProviderID)
	if err != nil {
		u.log.Warnf("Failed to lock provider %s: %+v", appointment.ProviderID, err)
		return err
	}
	if provider == nil {
		return ErrProviderNotFound
	}

	taken, err := u.appointmentRepo.ExistsActiveAtSlot(ctx, tx, appointment.ProviderID,
		appointment.AppointmentDate, appointment.AppointmentTime, &appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to check slot for appointment %s: %+v", appointment.ID, err)
		return err
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}

// syncQueueEntry keeps a checked-in appointment's queue entry in line with a
// reschedule. Moving to another day drops the entry; the patient checks in
// again on the new date.
func (u *appointmentUsecase) syncQueueEntry(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment) error {
	entry, err := u.queueRepo.FindByAppointmentID(ctx, tx, appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry for appointment %s: %+v", appointment.ID, err)
		return err
	}
	if entry == nil {
		return nil
	}

	if !entry.IsOnDate(appointment.AppointmentDate) {
		if err := u.queueRepo.Delete(ctx, tx, entry); err != nil {
			u.log.Warnf("Failed to drop queue entry %s: %+v", entry.ID, err)
			return err
		}
		return nil
	}

	if entry.ProviderID == appointment.ProviderID && entry.PatientID == appointment.PatientID {
		return nil
	}
	entry.Follow(appointment)
	if err := u.queueRepo.Update(ctx, tx, entry); err != nil {
		u.log.Warnf("Failed to move queue entry %s: %+v", entry.ID, err)
		return err
	}
	return nil
}
