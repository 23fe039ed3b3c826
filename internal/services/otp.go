package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
	"github.com/amruthadental/clinic-backend/internal/utils"
)

// DefaultOTPTTL is how long an issued code stays valid
const DefaultOTPTTL = 10 * time.Minute

type OTPGateConfig struct {
	TTL           time.Duration
	CountryPrefix string
	// BypassCode is accepted for any phone. Empty disables it.
	BypassCode string
}

// OTPGate issues and verifies one-time codes bound to a phone number
type OTPGate struct {
	store   storage.OTPStore
	channel Channel
	ttl     time.Duration
	prefix  string
	bypass  string

	now      func() time.Time
	generate func() (int, error)
}

func NewOTPGate(store storage.OTPStore, channel Channel, cfg OTPGateConfig) *OTPGate {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if channel == nil {
		channel = LogChannel{}
	}
	return &OTPGate{
		store:    store,
		channel:  channel,
		ttl:      ttl,
		prefix:   normalizePrefix(cfg.CountryPrefix),
		bypass:   strings.TrimSpace(cfg.BypassCode),
		now:      time.Now,
		generate: utils.GenerateOTPCode,
	}
}

// Normalize applies the gate's phone normalization
func (g *OTPGate) Normalize(raw string) string {
	return NormalizePhone(raw, g.prefix)
}

// Issue stores a fresh code for phone, replacing any previous one, and sends it.
// When sending fails the code stays stored and the error wraps ErrChannelFailure.
func (g *OTPGate) Issue(ctx context.Context, rawPhone, name string) (int, error) {
	ctx, span := tracer.Start(ctx, "otp.issue")
	defer span.End()

	phone := g.Normalize(rawPhone)
	if phone == "" {
		spanError(span, ErrInvalidPhone)
		return 0, ErrInvalidPhone
	}
	span.SetAttributes(attribute.String("otp.phone", phone))

	code, err := g.generate()
	if err != nil {
		spanError(span, err)
		return 0, err
	}

	entry := models.OTPEntry{Phone: phone, Code: code, ExpiresAt: g.now().Add(g.ttl)}
	if err := g.store.Put(ctx, entry); err != nil {
		spanError(span, err)
		return 0, fmt.Errorf("store otp for %s: %w", phone, err)
	}

	if _, err := g.channel.Send(ctx, phone, OTPMessage(name, code)); err != nil {
		err = fmt.Errorf("%w: %v", ErrChannelFailure, err)
		spanError(span, err)
		return code, err
	}
	return code, nil
}

// Verify consumes the stored code for phone if claim matches it.
// A mismatch leaves the stored code in place.
func (g *OTPGate) Verify(ctx context.Context, rawPhone, claim string) error {
	ctx, span := tracer.Start(ctx, "otp.verify")
	defer span.End()

	phone := g.Normalize(rawPhone)
	claim = strings.TrimSpace(claim)

	if g.bypass != "" && claim == g.bypass {
		span.SetAttributes(attribute.Bool("otp.bypass", true))
		if phone != "" {
			if err := g.store.Delete(ctx, phone); err != nil {
				spanError(span, err)
				return err
			}
		}
		return nil
	}

	if phone == "" {
		return ErrInvalidClaim
	}
	code, err := strconv.Atoi(claim)
	if err != nil {
		return ErrInvalidClaim
	}

	ok, err := g.store.Take(ctx, phone, code, g.now())
	if err != nil {
		spanError(span, err)
		return err
	}
	if !ok {
		return ErrInvalidClaim
	}
	return nil
}

// Revoke drops any code stored for phone
func (g *OTPGate) Revoke(ctx context.Context, rawPhone string) error {
	phone := g.Normalize(rawPhone)
	if phone == "" {
		return ErrInvalidPhone
	}
	return g.store.Delete(ctx, phone)
}
