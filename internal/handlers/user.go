package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/services"
)

// UserHandler serves registration
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Secret   string `json:"secret"`
}

// Register finds or creates the user for a verified phone
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.users.Register(c.UserContext(), req.Username, req.Phone, req.Secret)
	if err != nil {
		return mapError(c, err)
	}

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res)
}
