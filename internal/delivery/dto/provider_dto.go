package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecommendationsRequest struct {
	UrgencyScore  float64
	PreferredDate string `validate:"omitempty,date"`
	HorizonDays   int    `validate:"gte=0,lte=31"`
}

type ProviderResponse struct {
	ID              uuid.UUID       `json:"id"`
	FullName        string          `json:"full_name"`
	Specialization  string          `json:"specialization"`
	ExperienceYears int             `json:"experience_years"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	AvailableDays   string          `json:"available_days,omitempty"`
	AvailableHours  string          `json:"available_hours"`
}

type ProviderListResponse struct {
	Providers []ProviderResponse `json:"providers"`
	Total     int                `json:"total"`
}

type SlotsResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Slots      []string  `json:"available_slots"`
}

type RankedSlotResponse struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Score        float64 `json:"score"`
	UrgencyMatch bool    `json:"urgency_match"`
	Recommended  bool    `json:"recommended"`
}

type RecommendationsResponse struct {
	ProviderID   uuid.UUID            `json:"provider_id"`
	UrgencyScore float64              `json:"urgency_score"`
	Slots        []RankedSlotResponse `json:"recommended_slots"`
}
