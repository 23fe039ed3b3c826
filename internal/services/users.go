package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
	"github.com/amruthadental/clinic-backend/internal/utils"
)

type UserServiceConfig struct {
	CountryPrefix string
	// AdminSecretHash is a bcrypt hash. AdminSecret is hashed at startup when no hash is given.
	AdminSecretHash string
	AdminSecret     string
	JWTSecret       string
	JWTTTL          time.Duration
}

// RegisterResult is the registered user and, when signing is configured, its token
type RegisterResult struct {
	User    *models.User       `json:"user"`
	Token   *utils.AccessToken `json:"token,omitempty"`
	Created bool               `json:"created"`
}

type UserService struct {
	store     storage.Store
	prefix    string
	adminHash string
	jwtSecret string
	jwtTTL    time.Duration
}

func NewUserService(store storage.Store, cfg UserServiceConfig) (*UserService, error) {
	hash := strings.TrimSpace(cfg.AdminSecretHash)
	if hash == "" && cfg.AdminSecret != "" {
		h, err := utils.HashSecret(cfg.AdminSecret, bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin secret: %w", err)
		}
		hash = h
	}
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UserService{
		store:     store,
		prefix:    normalizePrefix(cfg.CountryPrefix),
		adminHash: hash,
		jwtSecret: cfg.JWTSecret,
		jwtTTL:    ttl,
	}, nil
}

// Register finds or creates the user for phone. A secret matching the admin
// secret grants the admin role; an existing admin is never demoted.
func (s *UserService) Register(ctx context.Context, username, rawPhone, secret string) (*RegisterResult, error) {
	ctx, span := tracer.Start(ctx, "user.register")
	defer span.End()

	phone := NormalizePhone(rawPhone, s.prefix)
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	admin := secret != "" && s.adminHash != "" && utils.VerifySecret(s.adminHash, secret)

	user, err := s.store.GetUserByPhone(ctx, phone)
	created := false
	switch {
	case errors.Is(err, storage.ErrNotFound):
		role := models.RolePatient
		if admin {
			role = models.RoleAdmin
		}
		user, err = s.store.CreateUser(ctx, &models.User{Username: username, Phone: phone, Role: role})
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a race with a concurrent registration for the same phone.
			user, err = s.store.GetUserByPhone(ctx, phone)
		} else if err == nil {
			created = true
			log.Printf("✅ New %s registered: %s", role, phone)
		}
		if err != nil {
			spanError(span, err)
			return nil, err
		}
	case err != nil:
		spanError(span, err)
		return nil, err
	}

	if admin && user.Elevate() {
		if err := s.store.UpdateUser(ctx, user); err != nil {
			spanError(span, err)
			return nil, err
		}
		log.Printf("🔑 User %d elevated to admin", user.ID)
	}

	res := &RegisterResult{User: user, Created: created}
	if s.jwtSecret != "" {
		tok, err := utils.NewAccessToken(s.jwtSecret, user.ID, user.Role, s.jwtTTL)
		if err != nil {
			spanError(span, err)
			return nil, fmt.Errorf("sign token: %w", err)
		}
		res.Token = &tok
	}
	return res, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}
