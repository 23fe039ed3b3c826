package models

import "time"

// OTPEntry is a live one-time passcode bound to a normalized phone number
type OTPEntry struct {
	Phone     string    `json:"phone"`
	Code      int       `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now
func (e OTPEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
