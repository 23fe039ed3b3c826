package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/utils"
)

func newGuardedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/admin", RequireRole(secret, "admin"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRequireRole(t *testing.T) {
	admin, _ := utils.NewAccessToken("s3cret", 1, "admin", time.Hour)
	patient, _ := utils.NewAccessToken("s3cret", 2, "patient", time.Hour)
	foreign, _ := utils.NewAccessToken("other", 1, "admin", time.Hour)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign.Token, fiber.StatusUnauthorized},
		{"wrong role", "Bearer " + patient.Token, fiber.StatusForbidden},
		{"admin", "Bearer " + admin.Token, fiber.StatusOK},
	}

	app := newGuardedApp("s3cret")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestRequireRoleDisabledWithoutSecret(t *testing.T) {
	resp, err := newGuardedApp("").Test(httptest.NewRequest("GET", "/admin", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatal("no request id assigned")
	}
}
