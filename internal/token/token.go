// Package token implements signed, expiring bearer tokens with
// audience-scoped claims. A Codec handles stateless signing and
// verification; a Manager layers default lifetimes and access/refresh
// pair issuance on top of it.
package token

import (
	"errors"
	"time"
)

// Audience restricts which operation a token may be used for. A token
// carries exactly one audience and is rejected wherever a different one
// is expected.
type Audience string

const (
	// AudienceAccess marks short-lived tokens accepted by the
	// authentication backend.
	AudienceAccess Audience = "access"
	// AudienceRefresh marks tokens accepted only by the refresh endpoint.
	AudienceRefresh Audience = "refresh"
)

var (
	// ErrInvalidSignature indicates the token bytes were tampered with or
	// signed with a different key.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrExpired indicates the token is past its validity window. A token
	// presented exactly at its expiry instant is already expired.
	ErrExpired = errors.New("token: expired")
	// ErrAudienceMismatch indicates a structurally valid token presented
	// to an operation expecting a different audience.
	ErrAudienceMismatch = errors.New("token: audience mismatch")
	// ErrInvalidClaims indicates the payload decoded but does not match
	// the claim shape required by its audience.
	ErrInvalidClaims = errors.New("token: invalid claims")
	// ErrRevoked indicates a refresh token that was already redeemed.
	ErrRevoked = errors.New("token: revoked")
)

// Claims is the decoded payload of a token. The shape is tagged by
// Audience: access tokens carry the principal id only, refresh tokens
// additionally carry a TokenID used for rotation bookkeeping.
type Claims struct {
	PrincipalID string
	TokenID     string
	Audience    Audience
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

func (c Claims) validateShape() error {
	if c.PrincipalID == "" {
		return ErrInvalidClaims
	}
	switch c.Audience {
	case AudienceAccess:
		return nil
	case AudienceRefresh:
		if c.TokenID == "" {
			return ErrInvalidClaims
		}
		return nil
	default:
		// Unknown audiences still round-trip; the expected-audience check
		// in Decode is what rejects them at use sites.
		return nil
	}
}
