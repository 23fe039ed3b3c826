package services

import (
	"fmt"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// DefaultClinicName signs the treatment-completed message
const DefaultClinicName = "Amrutha Dental Clinic"

// OTPMessage is the SMS body carrying a freshly issued code
func OTPMessage(name string, code int) string {
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("Hello %s, your OTP is: %d", name, code)
}

func confirmedMessage(a *models.Appointment) string {
	return fmt.Sprintf("Hello %s, appointment confirmed for %s on %s at %s.",
		a.PatientName(), a.Service, a.Date, a.Time)
}

func cancelledMessage(a *models.Appointment) string {
	return fmt.Sprintf("Appointment on %s has been CANCELLED.", a.Date)
}

func sittingDoneMessage(a *models.Appointment) string {
	return fmt.Sprintf("Sitting %d for %s is done. Next sitting: %s at %s.",
		a.CurrentSitting, a.Service, a.Date, a.Time)
}

func treatmentDoneMessage(a *models.Appointment, clinic string) string {
	return fmt.Sprintf("Treatment for %s is fully completed! Thank you for choosing %s.", a.Service, clinic)
}

// resultLabel is how one transition reports itself to the caller
type resultLabel struct {
	done string
	sms  string
}

var (
	labelConfirmed = resultLabel{done: "Confirmed", sms: "SMS"}
	labelCancelled = resultLabel{done: "Cancelled", sms: "SMS"}
	labelSitting   = resultLabel{done: "Sitting Updated", sms: "SMS"}
	labelTreatment = resultLabel{done: "Treatment Completed", sms: "Final SMS"}
)

// message picks the caller-facing text for a committed transition.
// A failed delivery softens the text and never turns into an error.
func (l resultLabel) message(outcome DeliveryOutcome) string {
	switch outcome {
	case OutcomeDelivered:
		return l.done + " & " + l.sms + " Sent"
	case OutcomeQueued:
		return l.done + " & " + l.sms + " Queued"
	default:
		return l.done + " (SMS Failed)"
	}
}
