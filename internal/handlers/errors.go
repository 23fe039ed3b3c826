package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/services"
	"github.com/amruthadental/clinic-backend/internal/storage"
)

var validate = validator.New()

// errorResponse writes the common error payload
func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// mapError turns a service error into its HTTP status and payload
func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Not Found")
	case errors.Is(err, services.ErrInvalidClaim):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_claim", "Invalid or Expired OTP")
	case errors.Is(err, services.ErrInvalidPhone):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_phone", "Invalid phone number")
	case errors.Is(err, services.ErrInvalidRequest):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return errorResponse(c, fiber.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, services.ErrSittingMismatch):
		return errorResponse(c, fiber.StatusConflict, "sitting_mismatch", err.Error())
	case errors.Is(err, storage.ErrVersionConflict):
		return errorResponse(c, fiber.StatusConflict, "version_conflict", "Appointment was modified concurrently, retry")
	case errors.Is(err, storage.ErrDuplicate):
		return errorResponse(c, fiber.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, services.ErrChannelFailure):
		return errorResponse(c, fiber.StatusInternalServerError, "channel_failure", "Failed to send SMS")
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return errorResponse(c, fiber.StatusInternalServerError, "unexpected", "Internal server error")
	}
}

// ErrorHandler is the fiber fallback for errors returned by handlers and middleware
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "unexpected"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "not_found"
		case fiber.StatusBadRequest:
			code = "invalid_request"
		case fiber.StatusUnauthorized:
			code = "unauthorized"
		case fiber.StatusForbidden:
			code = "forbidden"
		case fiber.StatusMethodNotAllowed:
			code = "method_not_allowed"
		}
		return errorResponse(c, fe.Code, code, fe.Message)
	}
	return mapError(c, err)
}

// parseBody decodes and validates the JSON body into req. The returned
// *fiber.Error is rendered by ErrorHandler.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fiber.NewError(fiber.StatusBadRequest,
				"Invalid field "+verrs[0].Field()+": failed "+verrs[0].Tag())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// idParam reads a positive numeric route parameter
func idParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseOptionalBody is parseBody for endpoints whose body may be omitted
func parseOptionalBody(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return parseBody(c, req)
}
