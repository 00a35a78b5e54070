package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueEntryResponse DTO
func QueueEntryToResponse(e *entity.QueueEntry) *dto.QueueEntryResponse {
	if e == nil {
		return nil
	}

	return &dto.QueueEntryResponse{
		ID:                e.ID,
		AppointmentID:     e.AppointmentID,
		ProviderID:        e.ProviderID,
		PatientID:         e.PatientID,
		ServiceDate:       e.ServiceDate.Format(entity.DateLayout),
		QueuePosition:     e.QueuePosition,
		EstimatedWaitTime: e.EstimatedWaitTime,
		CheckedInAt:       e.CheckedInAt,
		Status:            string(e.Status),
	}
}

func QueueEntriesToResponses(entries []entity.QueueEntry) []dto.QueueEntryResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i := range entries {
		responses[i] = *QueueEntryToResponse(&entries[i])
	}
	return responses
}

// QueueStatusToResponse builds the patient-facing view of a queue entry
func QueueStatusToResponse(e *entity.QueueEntry, patientsAhead int64) *dto.QueueStatusResponse {
	if e == nil {
		return nil
	}

	return &dto.QueueStatusResponse{
		AppointmentID:     e.AppointmentID,
		QueuePosition:     e.QueuePosition,
		PatientsAhead:     patientsAhead,
		EstimatedWaitTime: e.EstimatedWaitTime,
		Status:            string(e.Status),
		CheckedInAt:       e.CheckedInAt,
	}
}
