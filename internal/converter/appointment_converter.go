package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ProviderID:      a.ProviderID,
		AppointmentDate: a.AppointmentDate.Format(entity.DateLayout),
		AppointmentTime: a.AppointmentTime,
		ToothID:         a.ToothID,
		Symptoms:        a.Symptoms,
		Notes:           a.Notes,
		AIDiagnosis:     a.AIDiagnosis,
		UrgencyScore:    a.UrgencyScore,
		Status:          string(a.Status),
		TreatmentNotes:  a.TreatmentNotes,
		Prescription:    a.Prescription,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}

	if a.FollowUpDate != nil {
		followUp := a.FollowUpDate.Format(entity.DateLayout)
		response.FollowUpDate = &followUp
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
