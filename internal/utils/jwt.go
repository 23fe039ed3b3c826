package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed HS256 JWT and its expiry
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expiresAt"`
}

// TokenClaims are the claims the API reads back from a token
type TokenClaims struct {
	UserID uint
	Role   string
}

// NewAccessToken signs a token carrying sub, role, exp and iat
func NewAccessToken(secret string, userID uint, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken validates raw against secret and extracts its claims
func ParseAccessToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return TokenClaims{UserID: uint(id), Role: role}, nil
}
