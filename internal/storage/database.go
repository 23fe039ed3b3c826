package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// DatabaseStore implements Store on top of gorm (PostgreSQL or MySQL)
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store bound to an open gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Migrate creates or alters the tables this store needs
func (s *DatabaseStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Appointment{},
		&models.Notification{},
	)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// User operations
func (s *DatabaseStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("phone %s: %w", user.Phone, ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *DatabaseStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, notFound(err, "user with phone "+phone)
	}
	return &user, nil
}

func (s *DatabaseStore) UpdateUser(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username": user.Username,
			"email":    user.Email,
			"age":      user.Age,
			"role":     user.Role,
		})
	if result.Error != nil {
		return fmt.Errorf("update user %d: %w", user.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", user.ID, ErrNotFound)
	}
	return nil
}

// Appointment operations
func (s *DatabaseStore) CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	a := *appt
	a.ID = 0
	a.Version = 0
	a.User = nil
	a.ApplyDefaults()
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return s.GetAppointment(ctx, a.ID)
}

func (s *DatabaseStore) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).Preload("User").First(&appt, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("appointment %d", id))
	}
	return &appt, nil
}

func (s *DatabaseStore) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.WithUser {
		query = query.Preload("User")
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VisibleOnly {
		query = query.Where("is_visible = ?", true)
	}

	switch filter.Order {
	case models.OrderScheduleAsc:
		query = query.Order("date ASC").Order("time ASC").Order("id ASC")
	case models.OrderUpdatedDesc:
		query = query.Order("updated_at DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	var list []*models.Appointment
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

func (s *DatabaseStore) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND version = ?", appt.ID, appt.Version).
		Updates(map[string]interface{}{
			"date":            appt.Date,
			"time":            appt.Time,
			"service":         appt.Service,
			"status":          appt.Status,
			"rating":          appt.Rating,
			"review":          appt.Review,
			"is_visible":      appt.IsVisible,
			"total_sittings":  appt.TotalSittings,
			"current_sitting": appt.CurrentSitting,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      now,
		})
	if result.Error != nil {
		return fmt.Errorf("update appointment %d: %w", appt.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", appt.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("update appointment %d: %w", appt.ID, err)
		}
		if count == 0 {
			return fmt.Errorf("appointment %d: %w", appt.ID, ErrNotFound)
		}
		return fmt.Errorf("appointment %d at version %d: %w", appt.ID, appt.Version, ErrVersionConflict)
	}

	appt.Version++
	appt.UpdatedAt = now
	return nil
}

func (s *DatabaseStore) DeleteAppointment(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Unscoped().Delete(&models.Appointment{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete appointment %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	return nil
}

// Notification operations
func (s *DatabaseStore) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	rec := *n
	if rec.Status == "" {
		rec.Status = models.NotificationStatusPending
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return &rec, nil
}

func (s *DatabaseStore) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("notification %d", id))
	}
	return &n, nil
}

func (s *DatabaseStore) GetNotificationByProviderRef(ctx context.Context, ref string) (*models.Notification, error) {
	var n models.Notification
	if ref == "" {
		return nil, fmt.Errorf("notification ref: %w", ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&n).Error; err != nil {
		return nil, notFound(err, "notification ref "+ref)
	}
	return &n, nil
}

func (s *DatabaseStore) UpdateNotification(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Save(n).Error; err != nil {
		return fmt.Errorf("update notification %d: %w", n.ID, err)
	}
	return nil
}

func (s *DatabaseStore) GetPendingNotifications(ctx context.Context, olderThan time.Time, limit int) ([]*models.Notification, error) {
	query := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.NotificationStatusPending, olderThan).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []*models.Notification
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	return list, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
