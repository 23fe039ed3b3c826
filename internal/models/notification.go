package models

import "time"

// Notification is one delivery-log entry for an outbound message
type Notification struct {
	Base
	Kind          string     `json:"kind" gorm:"index"`
	Destination   string     `json:"destination"`
	Body          string     `json:"body"`
	AppointmentID uint       `json:"appointment_id" gorm:"index"`
	Status        string     `json:"status" gorm:"default:pending;index"` // "pending", "sent", "failed", "dead"
	Attempts      int        `json:"attempts" gorm:"default:0"`
	LastError     string     `json:"last_error,omitempty"`
	ProviderRef   string     `json:"provider_ref,omitempty" gorm:"index"` // carrier message SID
	SentAt        *time.Time `json:"sent_at,omitempty"`
}

// Notification kinds
const (
	NotificationKindOTP                  = "otp"
	NotificationKindAppointmentConfirmed = "appointment_confirmed"
	NotificationKindAppointmentCancelled = "appointment_cancelled"
	NotificationKindSittingCompleted     = "sitting_completed"
	NotificationKindTreatmentCompleted   = "treatment_completed"
)

// Notification status constants
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusDead    = "dead"
)

// NotificationIntent is the message a transition wants delivered
type NotificationIntent struct {
	Kind          string
	Destination   string
	Body          string
	AppointmentID uint
}
