package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// MemoryStore holds all data in memory for local runs and tests
type MemoryStore struct {
	users         map[uint]*models.User
	appointments  map[uint]*models.Appointment
	notifications map[uint]*models.Notification

	// Mutexes for thread safety
	userMu         sync.RWMutex
	appointmentMu  sync.RWMutex
	notificationMu sync.RWMutex

	// Counters for ID generation
	userCounter         uint
	appointmentCounter  uint
	notificationCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]*models.User),
		appointments:  make(map[uint]*models.Appointment),
		notifications: make(map[uint]*models.Notification),
	}
}

// User operations
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	for _, existing := range m.users {
		if existing.Phone == user.Phone {
			return nil, fmt.Errorf("phone %s: %w", user.Phone, ErrDuplicate)
		}
	}

	m.userCounter++
	now := time.Now()
	u := *user
	u.ID = m.userCounter
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Appointments = nil
	if u.Role == "" {
		u.Role = models.RolePatient
	}

	m.users[u.ID] = &u
	out := u
	return &out, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	out := *user
	return &out, nil
}

func (m *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	for _, user := range m.users {
		if user.Phone == phone {
			out := *user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user with phone %s: %w", phone, ErrNotFound)
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	stored, exists := m.users[user.ID]
	if !exists {
		return fmt.Errorf("user %d: %w", user.ID, ErrNotFound)
	}
	u := *user
	u.CreatedAt = stored.CreatedAt
	u.UpdatedAt = time.Now()
	u.Appointments = nil
	m.users[u.ID] = &u
	user.UpdatedAt = u.UpdatedAt
	return nil
}

// Appointment operations
func (m *MemoryStore) CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	m.appointmentCounter++
	now := time.Now()
	a := *appt
	a.ID = m.appointmentCounter
	a.ApplyDefaults()
	a.Version = 0
	a.User = nil
	a.CreatedAt = now
	a.UpdatedAt = now

	m.appointments[a.ID] = &a
	return m.withUser(a), nil
}

func (m *MemoryStore) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	appt, exists := m.appointments[id]
	if !exists {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	return m.withUser(*appt), nil
}

func (m *MemoryStore) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var results []*models.Appointment
	for _, appt := range m.appointments {
		// Match criteria
		if filter.UserID != 0 && appt.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.VisibleOnly && !appt.IsVisible {
			continue
		}

		if filter.WithUser {
			results = append(results, m.withUser(*appt))
		} else {
			a := *appt
			results = append(results, &a)
		}
	}

	sortAppointments(results, filter.Order)
	return results, nil
}

func (m *MemoryStore) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	stored, exists := m.appointments[appt.ID]
	if !exists {
		return fmt.Errorf("appointment %d: %w", appt.ID, ErrNotFound)
	}
	if stored.Version != appt.Version {
		return fmt.Errorf("appointment %d at version %d: %w", appt.ID, appt.Version, ErrVersionConflict)
	}

	a := *appt
	a.User = nil
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = time.Now()
	a.Version = stored.Version + 1
	m.appointments[a.ID] = &a

	appt.Version = a.Version
	appt.UpdatedAt = a.UpdatedAt
	return nil
}

func (m *MemoryStore) DeleteAppointment(ctx context.Context, id uint) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	if _, exists := m.appointments[id]; !exists {
		return fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	delete(m.appointments, id)
	return nil
}

// withUser copies a and attaches a copy of its owner. Caller holds appointmentMu.
func (m *MemoryStore) withUser(a models.Appointment) *models.Appointment {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	if user, ok := m.users[a.UserID]; ok {
		u := *user
		a.User = &u
	}
	return &a
}

func sortAppointments(list []*models.Appointment, order models.AppointmentOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch order {
		case models.OrderScheduleAsc:
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			if a.Time != b.Time {
				return a.Time < b.Time
			}
			return a.ID < b.ID
		case models.OrderUpdatedDesc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.ID > b.ID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})
}

// Notification operations
func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	m.notificationMu.Lock()
	defer m.notificationMu.Unlock()

	m.notificationCounter++
	now := time.Now()
	rec := *n
	rec.ID = m.notificationCounter
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = models.NotificationStatusPending
	}

	m.notifications[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (m *MemoryStore) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	m.notificationMu.RLock()
	defer m.notificationMu.RUnlock()

	n, exists := m.notifications[id]
	if !exists {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	out := *n
	return &out, nil
}

func (m *MemoryStore) GetNotificationByProviderRef(ctx context.Context, ref string) (*models.Notification, error) {
	m.notificationMu.RLock()
	defer m.notificationMu.RUnlock()

	for _, n := range m.notifications {
		if ref != "" && n.ProviderRef == ref {
			out := *n
			return &out, nil
		}
	}
	return nil, fmt.Errorf("notification ref %s: %w", ref, ErrNotFound)
}

func (m *MemoryStore) UpdateNotification(ctx context.Context, n *models.Notification) error {
	m.notificationMu.Lock()
	defer m.notificationMu.Unlock()

	stored, exists := m.notifications[n.ID]
	if !exists {
		return fmt.Errorf("notification %d: %w", n.ID, ErrNotFound)
	}
	rec := *n
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now()
	m.notifications[rec.ID] = &rec
	n.UpdatedAt = rec.UpdatedAt
	return nil
}

func (m *MemoryStore) GetPendingNotifications(ctx context.Context, olderThan time.Time, limit int) ([]*models.Notification, error) {
	m.notificationMu.RLock()
	defer m.notificationMu.RUnlock()

	var results []*models.Notification
	for _, n := range m.notifications {
		if n.Status != models.NotificationStatusPending || !n.UpdatedAt.Before(olderThan) {
			continue
		}
		out := *n
		results = append(results, &out)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
