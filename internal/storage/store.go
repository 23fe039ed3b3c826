package storage

import (
	"context"
	"time"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// Store defines the interface for storage operations.
// Reads return copies; callers mutate a copy and write it back with an Update call.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// Appointment operations
	CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id uint) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)
	// UpdateAppointment writes appt only if the stored Version still equals appt.Version,
	// then bumps appt.Version. A stale write returns ErrVersionConflict.
	UpdateAppointment(ctx context.Context, appt *models.Appointment) error
	DeleteAppointment(ctx context.Context, id uint) error

	// Notification delivery log
	CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	GetNotificationByProviderRef(ctx context.Context, ref string) (*models.Notification, error)
	UpdateNotification(ctx context.Context, n *models.Notification) error
	GetPendingNotifications(ctx context.Context, olderThan time.Time, limit int) ([]*models.Notification, error)

	Ping(ctx context.Context) error
}

// OTPStore holds live one-time passcodes keyed by normalized phone
type OTPStore interface {
	// Put stores entry, replacing any live entry for the same phone
	Put(ctx context.Context, entry models.OTPEntry) error
	// Take deletes the entry for phone if it is unexpired and its code equals code.
	// It reports whether the entry was consumed. A mismatch leaves the entry in place.
	Take(ctx context.Context, phone string, code int, now time.Time) (bool, error)
	Delete(ctx context.Context, phone string) error
}
