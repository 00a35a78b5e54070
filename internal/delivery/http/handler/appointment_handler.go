package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"
	"clinic-backend/pkg/validator"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
	log                *logrus.Logger
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator, log *logrus.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
		log:                log,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Create(r.Context(), actor, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := dto.ListAppointmentsRequest{
		Status: query.Get("status"),
		From:   query.Get("from"),
		To:     query.Get("to"),
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointments, err := h.appointmentUsecase.List(r.Context(), actor, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "id", "appointment ID")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Get(r.Context(), actor, appointmentID)
	if err != nil {
		writeError(w, h.log, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

// UpdateAppointment decodes the body into the update variant of the caller's role.
// A field outside that variant is refused with 403 rather than silently dropped.
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "id", "appointment ID")
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	var update usecase.AppointmentUpdate
	switch actor.Role {
	case entity.RolePatient:
		var req dto.PatientUpdateRequest
		if !h.decodeUpdate(w, body, &req) {
			return
		}
		update = usecase.PatientUpdate(req)
	case entity.RoleDoctor:
		var req dto.ProviderUpdateRequest
		if !h.decodeUpdate(w, body, &req) {
			return
		}
		update = usecase.ProviderUpdate(req)
	case entity.RoleAdmin:
		var req dto.AdminUpdateRequest
		if !h.decodeUpdate(w, body, &req) {
			return
		}
		update = usecase.AdminUpdate(req)
	default:
		response.Forbidden(w, "")
		return
	}

	appointment, err := h.appointmentUsecase.Update(r.Context(), actor, appointmentID, update)
	if err != nil {
		writeError(w, h.log, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) decodeUpdate(w http.ResponseWriter, body []byte, req interface{}) bool {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(req); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			response.Forbidden(w, "You are not allowed to update "+strings.TrimPrefix(err.Error(), "json: unknown field "))
			return false
		}
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}
