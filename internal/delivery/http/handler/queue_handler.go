package handler

import (
	"encoding/json"
	"net/http"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"
	"clinic-backend/pkg/validator"

	"github.com/sirupsen/logrus"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
	log          *logrus.Logger
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator, log *logrus.Logger) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
		log:          log,
	}
}

func (h *QueueHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "appointmentId", "appointment ID")
	if !ok {
		return
	}

	entry, err := h.queueUsecase.CheckIn(r.Context(), actor, appointmentID)
	if err != nil {
		writeError(w, h.log, err, "Failed to check in")
		return
	}

	response.Success(w, http.StatusOK, "Checked in successfully", entry)
}

func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	providerID, ok := pathUUID(w, r, "providerId", "provider ID")
	if !ok {
		return
	}

	called, err := h.queueUsecase.CallNext(r.Context(), actor, providerID)
	if err != nil {
		writeError(w, h.log, err, "Failed to call next patient")
		return
	}

	response.Success(w, http.StatusOK, "Next patient called", called)
}

func (h *QueueHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "appointmentId", "appointment ID")
	if !ok {
		return
	}

	status, err := h.queueUsecase.GetStatus(r.Context(), actor, appointmentID)
	if err != nil {
		writeError(w, h.log, err, "Failed to get queue status")
		return
	}

	response.Success(w, http.StatusOK, "Queue status retrieved successfully", status)
}

func (h *QueueHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "appointmentId", "appointment ID")
	if !ok {
		return
	}

	var req dto.UpdateQueueEntryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	entry, err := h.queueUsecase.UpdateEntryStatus(r.Context(), actor, appointmentID, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to update queue entry")
		return
	}

	response.Success(w, http.StatusOK, "Queue entry updated successfully", entry)
}

func (h *QueueHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	providerID, ok := pathUUID(w, r, "providerId", "provider ID")
	if !ok {
		return
	}

	queue, err := h.queueUsecase.ListQueue(r.Context(), actor, providerID, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, h.log, err, "Failed to get queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}
