package handler

import (
	"math"
	"net/http"
	"strconv"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/service"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"
	"clinic-backend/pkg/validator"

	"github.com/sirupsen/logrus"
)

type ProviderHandler struct {
	schedulingUsecase usecase.SchedulingUsecase
	validator         *validator.CustomValidator
	log               *logrus.Logger
}

func NewProviderHandler(schedulingUsecase usecase.SchedulingUsecase, validator *validator.CustomValidator, log *logrus.Logger) *ProviderHandler {
	return &ProviderHandler{
		schedulingUsecase: schedulingUsecase,
		validator:         validator,
		log:               log,
	}
}

func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.schedulingUsecase.ListProviders(r.Context())
	if err != nil {
		writeError(w, h.log, err, "Failed to get providers")
		return
	}

	response.Success(w, http.StatusOK, "Providers retrieved successfully", providers)
}

func (h *ProviderHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathUUID(w, r, "id", "provider ID")
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date query parameter is required")
		return
	}

	slots, err := h.schedulingUsecase.GetSlots(r.Context(), providerID, date)
	if err != nil {
		writeError(w, h.log, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

func (h *ProviderHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathUUID(w, r, "id", "provider ID")
	if !ok {
		return
	}

	query := r.URL.Query()
	req := dto.RecommendationsRequest{
		UrgencyScore:  service.DefaultUrgencyScore,
		PreferredDate: query.Get("preferred_date"),
		HorizonDays:   service.DefaultHorizonDays,
	}
	if v := query.Get("urgency_score"); v != "" {
		urgency, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(urgency) || math.IsInf(urgency, 0) {
			response.BadRequest(w, "urgency_score must be a number")
			return
		}
		req.UrgencyScore = urgency
	}
	if v := query.Get("horizon_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "horizon_days must be an integer")
			return
		}
		req.HorizonDays = days
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	recommendations, err := h.schedulingUsecase.GetRecommendations(r.Context(), providerID, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to get recommendations")
		return
	}

	response.Success(w, http.StatusOK, "Recommendations retrieved successfully", recommendations)
}
