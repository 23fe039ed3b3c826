package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/utils"
)

// Locals keys set by RequireRole
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// RequireRole allows requests carrying a valid Bearer token whose role is one
// of roles. With an empty secret the guard is disabled and every request passes.
func RequireRole(secret string, roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
				"message": "missing bearer token",
			})
		}

		claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
				"message": "invalid token",
			})
		}
		if _, ok := allowed[claims.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "forbidden",
				"message": "insufficient role",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}
