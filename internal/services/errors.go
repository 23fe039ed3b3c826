package services

import (
	"errors"

	"github.com/amruthadental/clinic-backend/internal/storage"
)

var (
	// ErrNotFound is the storage sentinel, re-exported for handlers
	ErrNotFound          = storage.ErrNotFound
	ErrInvalidClaim      = errors.New("invalid or expired otp")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrChannelFailure    = errors.New("notification channel failure")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrSittingMismatch   = errors.New("sitting number does not match appointment progress")
	ErrInvalidRequest    = errors.New("invalid request")
)
