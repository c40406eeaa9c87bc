// Package jwtmw signs and verifies session tokens and guards routes that
// require an authenticated principal.
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime.
const DefaultTTL = 24 * time.Hour

var (
	// ErrTokenExpired is returned when the signature is valid but the expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed tokens, bad signatures and any other decode failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Config holds the process-wide token settings.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Claims is the claim set carried by a session token: sub and exp as a numeric date.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec signs and decodes HS256 session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a Codec from cfg. A non-positive TTL falls back to DefaultTTL.
func NewCodec(cfg Config) *Codec {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime applied to signed tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for userID expiring TTL from now, truncated to whole seconds.
func (c *Codec) Sign(userID string) (string, error) {
	exp := c.now().UTC().Add(c.ttl).Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenStr and returns its subject.
// Errors wrap ErrTokenExpired or ErrTokenInvalid.
func (c *Codec) Decode(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC is accepted.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
