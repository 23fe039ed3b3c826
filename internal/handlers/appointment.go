package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/services"
)

// AppointmentHandler serves booking, the lifecycle actions and feedback
type AppointmentHandler struct {
	manager *services.AppointmentManager
}

func NewAppointmentHandler(manager *services.AppointmentManager) *AppointmentHandler {
	return &AppointmentHandler{manager: manager}
}

type bookRequest struct {
	UserID        uint   `json:"UserId" validate:"required"`
	Date          string `json:"date" validate:"required"`
	Time          string `json:"time"`
	Service       string `json:"service" validate:"required"`
	TotalSittings int    `json:"totalSittings" validate:"omitempty,min=1,max=50"`
}

type acceptRequest struct {
	Time string `json:"time"`
}

type completeSittingRequest struct {
	NextDate string `json:"nextDate"`
	NextTime string `json:"nextTime"`
	Sitting  int    `json:"sitting" validate:"omitempty,min=1"`
}

type feedbackRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}

type visibilityRequest struct {
	IsVisible *bool `json:"isVisible" validate:"required"`
}

func badID(c *fiber.Ctx) error {
	return errorResponse(c, fiber.StatusBadRequest, "invalid_request", "Invalid appointment ID")
}

// Book creates a pending appointment
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	var req bookRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	appt, err := h.manager.Book(c.UserContext(), services.BookInput{
		UserID:        req.UserID,
		Date:          req.Date,
		Time:          req.Time,
		Service:       req.Service,
		TotalSittings: req.TotalSittings,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

// ListForUser returns one patient's appointments, newest first
func (h *AppointmentHandler) ListForUser(c *fiber.Ctx) error {
	userID, ok := idParam(c, "userId")
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "invalid_request", "Invalid user ID")
	}
	list, err := h.manager.ListForUser(c.UserContext(), userID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(list)
}

// ListAll returns the clinic schedule
func (h *AppointmentHandler) ListAll(c *fiber.Ctx) error {
	list, err := h.manager.ListAll(c.UserContext())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(list)
}

// ListReviews returns published feedback
func (h *AppointmentHandler) ListReviews(c *fiber.Ctx) error {
	reviews, err := h.manager.ListReviews(c.UserContext())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(reviews)
}

func (h *AppointmentHandler) Accept(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req acceptRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	res, err := h.manager.Accept(c.UserContext(), id, req.Time)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(res)
}

func (h *AppointmentHandler) Decline(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}

	res, err := h.manager.Decline(c.UserContext(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(res)
}

// CompleteSitting also serves the legacy /schedule-next route
func (h *AppointmentHandler) CompleteSitting(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req completeSittingRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	res, err := h.manager.CompleteSitting(c.UserContext(), id, services.CompleteSittingInput{
		NextDate: req.NextDate,
		NextTime: req.NextTime,
		Sitting:  req.Sitting,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(res)
}

func (h *AppointmentHandler) Delete(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	if err := h.manager.Delete(c.UserContext(), id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Deleted"})
}

func (h *AppointmentHandler) SubmitFeedback(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req feedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if _, err := h.manager.SubmitFeedback(c.UserContext(), id, req.Rating, req.Review); err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Feedback Submitted"})
}

func (h *AppointmentHandler) SetVisibility(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req visibilityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if _, err := h.manager.SetVisibility(c.UserContext(), id, *req.IsVisible); err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Visibility Updated"})
}
