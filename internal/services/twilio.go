package services

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds the credentials and sender number for SMS delivery
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	From              string
	StatusCallbackURL string
}

type TwilioService struct {
	client         *twilio.RestClient
	from           string
	statusCallback string
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg TwilioConfig) (*TwilioService, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client:         client,
		from:           cfg.From,
		statusCallback: cfg.StatusCallbackURL,
	}, nil
}

// Send sends an SMS via Twilio and returns the message SID
func (t *TwilioService) Send(ctx context.Context, to, body string) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("twilio client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)
	if t.statusCallback != "" {
		params.SetStatusCallback(t.statusCallback)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS to %s: %v", to, err)
		return "", err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return "", fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("✅ SMS sent! SID: %s", sid)
	return sid, nil
}
