package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpMin  = 100000
	otpSpan = 900000
)

// GenerateOTPCode returns a cryptographically random 6-digit code in [100000, 999999]
func GenerateOTPCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return otpMin + int(n.Int64()), nil
}
