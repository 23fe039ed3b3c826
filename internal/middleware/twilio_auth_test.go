package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const callbackURL = "https://clinic.example.com/webhook/twilio/status"

// sign computes a Twilio request signature for a form POST
func sign(token, u string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := u
	for _, k := range keys {
		data += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateTwilioSignature(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook/twilio/status", ValidateTwilioSignature("tok", callbackURL), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	form := url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"delivered"}}

	cases := []struct {
		name      string
		signature string
		want      int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"forged", sign("other", callbackURL, form), fiber.StatusUnauthorized},
		{"valid", sign("tok", callbackURL, form), fiber.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/webhook/twilio/status", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tc.signature != "" {
				req.Header.Set("X-Twilio-Signature", tc.signature)
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
