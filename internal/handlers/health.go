package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is any dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	Service string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new health handler probing checks
func NewHealthHandler(service, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		Version: version,
		Service: service,
		checks:  checks,
	}
}

// Check returns the health status of the service and its dependencies
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "OK"
	deps := fiber.Map{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = "DEGRADED"
			continue
		}
		deps[name] = "OK"
	}

	code := fiber.StatusOK
	if status != "OK" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"service":      h.Service,
		"version":      h.Version,
		"dependencies": deps,
	})
}
