package token

import (
	"errors"
	"time"
)

const (
	defaultAccessLifetime  = 15 * time.Minute
	defaultRefreshLifetime = 14 * 24 * time.Hour
)

// Manager orchestrates issuance and validation of access/refresh token
// pairs with configurable default lifetimes. It is constructed once at
// process start and safe for concurrent use.
type Manager struct {
	codec           *Codec
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

// Pair holds the two tokens minted for a login or refresh, along with
// their expirations.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// ManagerOption configures Manager defaults.
type ManagerOption func(*Manager)

// WithAccessLifetime overrides the default access token lifetime.
func WithAccessLifetime(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.accessLifetime = d
		}
	}
}

// WithRefreshLifetime overrides the default refresh token lifetime.
func WithRefreshLifetime(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.refreshLifetime = d
		}
	}
}

// NewManager constructs a Manager around an existing codec.
func NewManager(codec *Codec, opts ...ManagerOption) (*Manager, error) {
	if codec == nil {
		return nil, errors.New("token: codec is required")
	}
	m := &Manager{
		codec:           codec,
		accessLifetime:  defaultAccessLifetime,
		refreshLifetime: defaultRefreshLifetime,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RefreshLifetime reports the configured refresh token lifetime.
func (m *Manager) RefreshLifetime() time.Duration { return m.refreshLifetime }

// CreateCode signs a single token. A zero lifetime selects the manager
// default for the claims' audience. Every call is an independent signing
// operation; callers must not assume two calls with equal inputs share
// a result.
func (m *Manager) CreateCode(claims Claims, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = m.lifetimeFor(claims.Audience)
	}
	return m.codec.Encode(claims, lifetime)
}

// CreatePair issues one access and one refresh token for the principal.
// The refresh token additionally carries tokenID so a later refresh can
// be tied back to this issuance and invalidated after one use.
func (m *Manager) CreatePair(principalID, tokenID string) (Pair, error) {
	if principalID == "" {
		return Pair{}, ErrInvalidClaims
	}
	if tokenID == "" {
		return Pair{}, ErrInvalidClaims
	}

	access, err := m.CreateCode(Claims{PrincipalID: principalID, Audience: AudienceAccess}, 0)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.CreateCode(Claims{PrincipalID: principalID, TokenID: tokenID, Audience: AudienceRefresh}, 0)
	if err != nil {
		return Pair{}, err
	}

	now := m.codec.now().UTC().Truncate(time.Second)
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(m.accessLifetime),
		RefreshExpiresAt: now.Add(m.refreshLifetime),
	}, nil
}

// DecodeCode verifies raw against the expected audience and returns its
// claims. Codec errors propagate untouched so callers can distinguish
// tampering, expiry, and audience misuse.
func (m *Manager) DecodeCode(raw string, expected Audience) (Claims, error) {
	return m.codec.Decode(raw, expected)
}

func (m *Manager) lifetimeFor(aud Audience) time.Duration {
	if aud == AudienceRefresh {
		return m.refreshLifetime
	}
	return m.accessLifetime
}
