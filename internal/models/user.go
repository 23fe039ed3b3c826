package models

import (
	"gorm.io/gorm"
)

// User roles
const (
	RolePatient = "patient"
	RoleAdmin   = "admin"
)

// User is a phone-verified patient or clinic administrator
type User struct {
	Base
	Username string `json:"username"`
	Phone    string `json:"phone" gorm:"uniqueIndex;size:32"`
	Email    string `json:"email"`
	Age      string `json:"age"`
	Role     string `json:"role" gorm:"default:patient"`

	Appointments []Appointment `json:"appointments,omitempty"`
}

// BeforeCreate fills the default role
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RolePatient
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Elevate grants the admin role. There is no demotion path.
func (u *User) Elevate() bool {
	if u.Role == RoleAdmin {
		return false
	}
	u.Role = RoleAdmin
	return true
}
