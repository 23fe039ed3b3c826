package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID carries the per-request correlation id
const HeaderRequestID = "X-Request-ID"

// RequestID echoes the caller's X-Request-ID or assigns a new one
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}
