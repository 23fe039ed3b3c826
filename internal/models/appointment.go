package models

import (
	"time"

	"gorm.io/gorm"
)

// Appointment is a booked visit, possibly the first of several sittings
type Appointment struct {
	Base
	Date    string `json:"date"`
	Time    string `json:"time"`
	Service string `json:"service"`

	// Status tracking
	Status string `json:"status" gorm:"default:pending;index"` // "pending", "confirmed", "cancelled", "completed"

	// Feedback
	Rating    int    `json:"rating" gorm:"default:0"`
	Review    string `json:"review" gorm:"default:''"`
	IsVisible bool   `json:"isVisible" gorm:"default:false"`

	// Multi-visit treatment progress
	TotalSittings  int `json:"totalSittings" gorm:"default:1"`
	CurrentSitting int `json:"currentSitting" gorm:"default:0"`

	// Optimistic concurrency counter, bumped by every update
	Version int `json:"version" gorm:"not null;default:0"`

	UserID uint  `json:"UserId" gorm:"index"`
	User   *User `json:"User,omitempty"`
}

// Appointment status constants
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusCompleted = "completed"
)

// BeforeCreate applies the defaults a fresh booking starts with
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.ApplyDefaults()
	return nil
}

// ApplyDefaults normalizes the fields a fresh booking must have
func (a *Appointment) ApplyDefaults() {
	if a.Status == "" {
		a.Status = AppointmentStatusPending
	}
	if a.TotalSittings < 1 {
		a.TotalSittings = 1
	}
	if a.CurrentSitting < 0 {
		a.CurrentSitting = 0
	}
}

// IsTerminal reports whether no further transition is defined
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCancelled || a.Status == AppointmentStatusCompleted
}

// Destination returns the patient's phone, empty when the owner is not loaded
func (a *Appointment) Destination() string {
	if a.User == nil {
		return ""
	}
	return a.User.Phone
}

// PatientName returns the owner's username, empty when the owner is not loaded
func (a *Appointment) PatientName() string {
	if a.User == nil {
		return ""
	}
	return a.User.Username
}

// AppointmentOrder selects the ordering of a listing
type AppointmentOrder int

const (
	// OrderCreatedDesc lists newest bookings first
	OrderCreatedDesc AppointmentOrder = iota
	// OrderScheduleAsc lists by date, then time
	OrderScheduleAsc
	// OrderUpdatedDesc lists most recently updated first
	OrderUpdatedDesc
)

// AppointmentFilter narrows an appointment listing
type AppointmentFilter struct {
	UserID      uint
	Status      string
	VisibleOnly bool
	WithUser    bool
	Order       AppointmentOrder
}

// Review is the public projection of a completed, published appointment
type Review struct {
	ID        uint      `json:"id"`
	Service   string    `json:"service"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updatedAt"`
}
