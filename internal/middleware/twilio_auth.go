package middleware

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	twilioClient "github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature rejects webhook requests that were not signed with
// authToken. publicURL is the callback URL registered with Twilio; when empty
// the URL is rebuilt from the request.
func ValidateTwilioSignature(authToken, publicURL string) fiber.Handler {
	validator := twilioClient.NewRequestValidator(authToken)

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
				"message": "Missing Twilio signature",
			})
		}

		if authToken == "" {
			log.Println("❌ Twilio webhook called but TWILIO_AUTH_TOKEN is not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "unexpected",
				"message": "Server configuration error",
			})
		}

		url := publicURL
		if url == "" {
			url = getFullURL(c)
		}

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		if !validator.Validate(url, formParams, signature) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
				"message": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// getFullURL constructs the full URL for the request
func getFullURL(c *fiber.Ctx) string {
	protocol := "https"
	if c.Protocol() == "http" {
		protocol = "http"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.Hostname(), c.OriginalURL())
}
