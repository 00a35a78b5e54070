package usecase

import (
	"context"
	"time"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SchedulingUsecase is the public read side: providers, free slots and ranked suggestions
type SchedulingUsecase interface {
	ListProviders(ctx context.Context) (*dto.ProviderListResponse, error)
	GetSlots(ctx context.Context, providerID uuid.UUID, date string) (*dto.SlotsResponse, error)
	GetRecommendations(ctx context.Context, providerID uuid.UUID, req *dto.RecommendationsRequest) (*dto.RecommendationsResponse, error)
}

type schedulingUsecase struct {
	tx           repository.Transactor
	log          *logrus.Logger
	doctorRepo   repository.DoctorProfileRepository
	availability service.AvailabilityService
	ranker       service.SlotRanker
}

func NewSchedulingUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	doctorRepo repository.DoctorProfileRepository,
	availability service.AvailabilityService,
	ranker service.SlotRanker,
) SchedulingUsecase {
	return &schedulingUsecase{
		tx:           tx,
		log:          log,
		doctorRepo:   doctorRepo,
		availability: availability,
		ranker:       ranker,
	}
}

func (u *schedulingUsecase) ListProviders(ctx context.Context) (*dto.ProviderListResponse, error) {
	providers, err := u.doctorRepo.FindAll(ctx, u.tx.Conn(ctx))
	if err != nil {
		u.log.Warnf("Failed to find providers: %+v", err)
		return nil, err
	}

	return &dto.ProviderListResponse{
		Providers: converter.ProvidersToResponses(providers),
		Total:     len(providers),
	}, nil
}

func (u *schedulingUsecase) GetSlots(ctx context.Context, providerID uuid.UUID, date string) (*dto.SlotsResponse, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if err := u.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}

	return &dto.SlotsResponse{
		ProviderID: providerID,
		Date:       day.Format(entity.DateLayout),
		Slots:      u.availability.ComputeSlots(ctx, providerID, day),
	}, nil
}

func (u *schedulingUsecase) GetRecommendations(ctx context.Context, providerID uuid.UUID, req *dto.RecommendationsRequest) (*dto.RecommendationsResponse, error) {
	var preferred *time.Time
	if req.PreferredDate != "" {
		day, err := entity.ParseDate(req.PreferredDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		preferred = &day
	}
	if err := u.ensureProvider(ctx, providerID); err != nil {
		return nil, err
	}

	slots := u.ranker.RecommendSlots(ctx, providerID, req.UrgencyScore, preferred, req.HorizonDays)

	return &dto.RecommendationsResponse{
		ProviderID:   providerID,
		UrgencyScore: req.UrgencyScore,
		Slots:        converter.RankedSlotsToResponses(slots),
	}, nil
}

func (u *schedulingUsecase) ensureProvider(ctx context.Context, providerID uuid.UUID) error {
	provider, err := u.doctorRepo.FindByUserID(ctx, u.tx.Conn(ctx), providerID)
	if err != nil {
		u.log.Warnf("Failed to find provider %s: %+v", providerID, err)
		return err
	}
	if provider == nil {
		return ErrProviderNotFound
	}
	return nil
}
