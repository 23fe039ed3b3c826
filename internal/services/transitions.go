package services

import "github.com/amruthadental/clinic-backend/internal/models"

// Appointment lifecycle actions
const (
	ActionAccept          = "accept"
	ActionDecline         = "decline"
	ActionCompleteSitting = "complete_sitting"
	ActionDelete          = "delete"
)

var transitionMap = map[string][]string{
	ActionAccept: {models.AppointmentStatusPending},
	ActionDecline: {
		models.AppointmentStatusPending,
		models.AppointmentStatusConfirmed,
	},
	ActionCompleteSitting: {
		models.AppointmentStatusPending,
		models.AppointmentStatusConfirmed,
	},
	ActionDelete: {
		models.AppointmentStatusPending,
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusCompleted,
	},
}

// CanTransition reports whether action is allowed on an appointment in fromStatus
func CanTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
