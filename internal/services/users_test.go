package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
	"github.com/amruthadental/clinic-backend/internal/utils"
)

func newTestUserService(t *testing.T, store storage.Store) *UserService {
	t.Helper()
	hash, err := utils.HashSecret("letmein", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewUserService(store, UserServiceConfig{AdminSecretHash: hash, JWTSecret: "jwt", JWTTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestRegisterFindOrCreate(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestUserService(t, store)
	ctx := context.Background()

	first, err := svc.Register(ctx, "asha", "9000000000", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !first.Created || first.User.Phone != "+919000000000" || first.User.Role != models.RolePatient {
		t.Fatalf("first = %+v", first.User)
	}
	if first.Token == nil {
		t.Fatal("expected a token")
	}
	claims, err := utils.ParseAccessToken("jwt", first.Token.Token)
	if err != nil || claims.UserID != first.User.ID || claims.Role != models.RolePatient {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	again, err := svc.Register(ctx, "asha", "+919000000000", "")
	if err != nil {
		t.Fatal(err)
	}
	if again.Created || again.User.ID != first.User.ID {
		t.Fatalf("second registration created a new user")
	}
}

func TestRegisterAdminSecret(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestUserService(t, store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dr", "9111111111", "wrong"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Register(ctx, "dr", "9111111111", "letmein")
	if err != nil {
		t.Fatal(err)
	}
	if !res.User.IsAdmin() {
		t.Fatalf("role = %s, want admin", res.User.Role)
	}

	// no demotion without the secret
	res, err = svc.Register(ctx, "dr", "9111111111", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.User.IsAdmin() {
		t.Fatalf("admin demoted to %s", res.User.Role)
	}

	fresh, err := svc.Register(ctx, "nurse", "9222222222", "letmein")
	if err != nil {
		t.Fatal(err)
	}
	if !fresh.Created || !fresh.User.IsAdmin() {
		t.Fatalf("new admin = %+v", fresh.User)
	}
}

func TestRegisterInvalidPhone(t *testing.T) {
	svc := newTestUserService(t, storage.NewMemoryStore())
	if _, err := svc.Register(context.Background(), "x", " ", ""); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("Register() = %v, want ErrInvalidPhone", err)
	}
}
