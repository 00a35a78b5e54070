package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"
)

// ProviderToResponse converts a DoctorProfile (with its User preloaded) to ProviderResponse DTO
func ProviderToResponse(p *entity.DoctorProfile) *dto.ProviderResponse {
	if p == nil {
		return nil
	}

	return &dto.ProviderResponse{
		ID:              p.UserID,
		FullName:        p.User.FullName,
		Specialization:  p.Specialization,
		ExperienceYears: p.ExperienceYears,
		ConsultationFee: p.ConsultationFee,
		AvailableDays:   p.AvailableDays,
		AvailableHours:  p.WorkingHours,
	}
}

func ProvidersToResponses(profiles []entity.DoctorProfile) []dto.ProviderResponse {
	responses := make([]dto.ProviderResponse, len(profiles))
	for i := range profiles {
		responses[i] = *ProviderToResponse(&profiles[i])
	}
	return responses
}

// RankedSlotsToResponses converts ranked slots to their DTO form
func RankedSlotsToResponses(slots []service.RankedSlot) []dto.RankedSlotResponse {
	responses := make([]dto.RankedSlotResponse, len(slots))
	for i, s := range slots {
		responses[i] = dto.RankedSlotResponse{
			Date:         s.Date,
			Time:         s.Time,
			Score:        s.Score,
			UrgencyMatch: s.UrgencyMatch,
			Recommended:  s.Recommended,
		}
	}
	return responses
}
