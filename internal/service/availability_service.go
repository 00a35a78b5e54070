package service

import (
	"context"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AvailabilityService computes free booking slots for a provider on a date.
// It never fails: missing providers, bad working hours and storage errors all
// yield an empty list.
type AvailabilityService interface {
	ComputeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) []string
}

type availabilityService struct {
	tx              repository.Transactor
	log             *logrus.Logger
	doctorRepo      repository.DoctorProfileRepository
	appointmentRepo repository.AppointmentRepository
	duration        time.Duration
	stride          time.Duration
}

func NewAvailabilityService(
	tx repository.Transactor,
	log *logrus.Logger,
	doctorRepo repository.DoctorProfileRepository,
	appointmentRepo repository.AppointmentRepository,
	cfg config.SchedulingConfig,
) AvailabilityService {
	return &availabilityService{
		tx:              tx,
		log:             log,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		duration:        cfg.SlotDuration,
		stride:          cfg.SlotStride,
	}
}

func (s *availabilityService) ComputeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) []string {
	db := s.tx.Conn(ctx)

	doctor, err := s.doctorRepo.FindByUserID(ctx, db, providerID)
	if err != nil {
		s.log.Warnf("Failed to find provider %s: %+v", providerID, err)
		return []string{}
	}
	if doctor == nil {
		return []string{}
	}

	hours, err := doctor.Hours()
	if err != nil {
		s.log.Debugf("Provider %s has unusable working hours %q", providerID, doctor.WorkingHours)
		return []string{}
	}

	booked, err := s.appointmentRepo.FindBookedTimes(ctx, db, providerID, date)
	if err != nil {
		s.log.Warnf("Failed to load booked times for provider %s: %+v", providerID, err)
		return []string{}
	}

	return GenerateSlots(hours, s.duration, s.stride, booked)
}

// GenerateSlots enumerates slot starts from the window start in stride steps.
// A start is kept when the whole slot fits inside the window and the exact
// start time is not in booked.
func GenerateSlots(hours entity.WorkingHours, duration, stride time.Duration, booked []string) []string {
	slots := []string{}
	if duration <= 0 || stride <= 0 {
		return slots
	}

	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	for start := hours.Start; start < hours.End; start += stride {
		if start+duration > hours.End {
			break
		}
		label := entity.FormatClock(start)
		if _, ok := taken[label]; ok {
			continue
		}
		slots = append(slots, label)
	}

	return slots
}
