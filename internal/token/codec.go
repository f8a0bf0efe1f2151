package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies tokens with a process-wide HMAC secret.
// Encoding and decoding are pure functions of the inputs and the secret;
// the codec holds no per-token state.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type wireClaims struct {
	PrincipalID string `json:"uid"`
	jwt.RegisteredClaims
}

// CodecOption configures optional Codec behavior.
type CodecOption func(*Codec)

// WithIssuer sets the issuer claim stamped into every token.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) { c.issuer = issuer }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The secret is injected once at process
// start and never changes afterwards.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: secret is required")
	}
	c := &Codec{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode serializes the claims into a signed HS256 token valid for the
// given lifetime. Issued-at is the codec's current time; expiry is
// issued-at plus lifetime, both at second granularity.
func (c *Codec) Encode(claims Claims, lifetime time.Duration) (string, error) {
	if claims.PrincipalID == "" {
		return "", ErrInvalidClaims
	}
	if claims.Audience == "" {
		return "", ErrInvalidClaims
	}
	if lifetime <= 0 {
		return "", errors.New("token: lifetime must be greater than zero")
	}

	now := c.now().UTC().Truncate(time.Second)
	wire := wireClaims{
		PrincipalID: claims.PrincipalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{string(claims.Audience)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        claims.TokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry, then checks the audience claim
// against expected. Failures are reported as ErrInvalidSignature,
// ErrExpired, ErrAudienceMismatch, or ErrInvalidClaims; nothing is ever
// swallowed or downgraded.
func (c *Codec) Decode(raw string, expected Audience) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidSignature
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(raw, &wireClaims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalidSignature
	}

	wire, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidSignature
	}
	if len(wire.Audience) != 1 {
		return Claims{}, ErrInvalidClaims
	}
	if Audience(wire.Audience[0]) != expected {
		return Claims{}, ErrAudienceMismatch
	}
	if c.issuer != "" && wire.Issuer != c.issuer {
		return Claims{}, ErrInvalidSignature
	}

	claims := Claims{
		PrincipalID: wire.PrincipalID,
		TokenID:     wire.ID,
		Audience:    Audience(wire.Audience[0]),
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	if err := claims.validateShape(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
