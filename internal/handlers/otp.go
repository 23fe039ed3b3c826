package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/amruthadental/clinic-backend/internal/services"
)

// OTPHandler serves the phone verification endpoints
type OTPHandler struct {
	gate *services.OTPGate
}

func NewOTPHandler(gate *services.OTPGate) *OTPHandler {
	return &OTPHandler{gate: gate}
}

type sendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name"`
}

type verifyOTPRequest struct {
	Phone string   `json:"phone" validate:"required"`
	OTP   otpClaim `json:"otp" validate:"required"`
}

// otpClaim is a submitted code, sent by clients either as a JSON string or a number
type otpClaim string

func (c *otpClaim) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = otpClaim(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = otpClaim(n.String())
	return nil
}

// SendOTP issues a code and texts it to the caller
func (h *OTPHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if _, err := h.gate.Issue(c.UserContext(), req.Phone, req.Name); err != nil {
		if errors.Is(err, services.ErrChannelFailure) {
			log.Printf("❌ OTP SMS to %s failed: %v", h.gate.Normalize(req.Phone), err)
		}
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP Sent",
	})
}

// VerifyOTP checks a submitted code
func (h *OTPHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.gate.Verify(c.UserContext(), req.Phone, string(req.OTP)); err != nil {
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verification Successful",
	})
}
