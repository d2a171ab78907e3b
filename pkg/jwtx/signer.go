package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretSize is the shortest HMAC secret NewHS256 accepts.
const MinSecretSize = 32

// Signer is anything that can turn Claims into a compact JWT.
type Signer interface {
	Sign(Claims) (string, error)
}

// HS256 signs and verifies session tokens with a shared secret. It
// implements both Signer and Verifier.
type HS256 struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewHS256 returns an HS256 signer/verifier. Tokens from other issuers are
// rejected on verify.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes, got %d", MinSecretSize, len(secret))
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &HS256{key: key, issuer: issuer, now: time.Now}, nil
}

// WithClock replaces the time source used for expiry checks.
func (h *HS256) WithClock(now func() time.Time) *HS256 {
	h.now = now
	return h
}

// Sign implements Signer.
func (h *HS256) Sign(c Claims) (string, error) {
	if c.SID == "" {
		return "", ErrInvalidClaim
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(h.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify implements Verifier.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return Claims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Claims{}, ErrNotYetValid
	default:
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiryAt(h.now()); err != nil {
		return Claims{}, err
	}
	if claims.SID == "" {
		return Claims{}, ErrInvalidClaim
	}

	return *claims, nil
}
