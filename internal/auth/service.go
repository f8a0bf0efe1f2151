package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wishmaster.org/internal/revoke"
	"wishmaster.org/internal/token"
)

// Service orchestrates login and refresh: credential verification,
// principal status checks, token pair issuance, and single-use refresh
// rotation. It holds no mutable state and is safe for concurrent use.
type Service struct {
	tokens     *token.Manager
	principals PrincipalStore
	revoked    revoke.Store
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service. The revocation
// store backs refresh rotation; pass revoke.NewMemory() for single-node
// deployments.
func NewService(tokens *token.Manager, principals PrincipalStore, revoked revoke.Store, opts ...ServiceOption) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	if principals == nil {
		return nil, errNilStore
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation store is required")
	}
	s := &Service{
		tokens:     tokens,
		principals: principals,
		revoked:    revoked,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login verifies credentials and issues a fresh access/refresh pair.
// Lookup failures and password mismatches both surface as
// ErrInvalidCredentials; a disqualifying status as ErrInactivePrincipal.
func (s *Service) Login(ctx context.Context, email, password string) (token.Pair, *Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return token.Pair{}, nil, ErrInvalidCredentials
	}
	principal, err := s.principals.FindPrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return token.Pair{}, nil, ErrInvalidCredentials
		}
		return token.Pair{}, nil, err
	}
	if err := VerifyPassword(principal.PasswordHash, password); err != nil {
		return token.Pair{}, nil, ErrInvalidCredentials
	}
	if !principal.Active() {
		return token.Pair{}, nil, ErrInactivePrincipal
	}

	pair, err := s.tokens.CreatePair(principal.ID, uuid.NewString())
	if err != nil {
		return token.Pair{}, nil, err
	}
	return pair, principal, nil
}

// Refresh redeems a refresh token for a new pair. Refresh tokens are
// single-use: the redeemed token id joins the revocation set for its
// remaining lifetime, and presenting it again fails with
// token.ErrRevoked. Codec errors propagate untouched.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, *Principal, error) {
	claims, err := s.tokens.DecodeCode(refreshToken, token.AudienceRefresh)
	if err != nil {
		return token.Pair{}, nil, err
	}

	principal, err := s.principals.FindPrincipalByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return token.Pair{}, nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return token.Pair{}, nil, err
	}
	if !principal.Active() {
		return token.Pair{}, nil, ErrInactivePrincipal
	}

	// Redemption is an atomic test-and-set in the revocation store:
	// concurrent presentations of the same token resolve to exactly one
	// winner. It runs after the principal checks so a failed refresh
	// never consumes the token, and before minting so a crash between
	// the two steps can only lose a refresh, never double one.
	spent, err := s.revoked.Redeem(ctx, claims.TokenID, claims.ExpiresAt.Sub(s.now()))
	if err != nil {
		return token.Pair{}, nil, fmt.Errorf("redeem refresh token: %w", err)
	}
	if spent {
		return token.Pair{}, nil, token.ErrRevoked
	}

	pair, err := s.tokens.CreatePair(principal.ID, uuid.NewString())
	if err != nil {
		return token.Pair{}, nil, err
	}
	return pair, principal, nil
}

// Tokens exposes the underlying manager for callers that only decode.
func (s *Service) Tokens() *token.Manager { return s.tokens }
