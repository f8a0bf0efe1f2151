package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wishmaster.org/internal/token"
)

// ResultKind tags the outcome of an authentication attempt.
type ResultKind int

const (
	// ResultAnonymous means no credentials were presented. Not an error:
	// the request proceeds unauthenticated and public handlers serve it.
	ResultAnonymous ResultKind = iota
	// ResultAuthenticated means a valid access token resolved to an
	// active principal.
	ResultAuthenticated
	// ResultRejected means credentials were presented but failed. The
	// transport layer answers with a generic authentication failure and
	// logs the wrapped cause server-side.
	ResultRejected
)

// Result is the tagged outcome of Backend.Authenticate. Principal is
// set only for ResultAuthenticated, Err only for ResultRejected.
type Result struct {
	Kind      ResultKind
	Principal *Principal
	Err       error
}

// Backend authenticates inbound requests from their Authorization
// header. It is pluggable over the scheme prefix; "Bearer" by default.
type Backend struct {
	tokens     *token.Manager
	principals PrincipalStore
	scheme     string
}

// BackendOption configures the Backend.
type BackendOption func(*Backend)

// WithScheme overrides the expected authorization scheme prefix.
func WithScheme(scheme string) BackendOption {
	return func(b *Backend) {
		if s := strings.TrimSpace(scheme); s != "" {
			b.scheme = s
		}
	}
}

// NewBackend constructs an authentication backend.
func NewBackend(tokens *token.Manager, principals PrincipalStore, opts ...BackendOption) (*Backend, error) {
	if tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	if principals == nil {
		return nil, errNilStore
	}
	b := &Backend{tokens: tokens, principals: principals, scheme: "Bearer"}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Authenticate resolves the Authorization header to a Result. A missing
// header or foreign scheme yields Anonymous; a presented-but-invalid
// credential (bad signature, expiry, wrong audience, unknown or
// inactive principal) yields Rejected with the cause wrapped under
// ErrAuthenticationFailed.
func (b *Backend) Authenticate(ctx context.Context, header string) Result {
	header = strings.TrimSpace(header)
	if header == "" {
		return Result{Kind: ResultAnonymous}
	}

	prefix := b.scheme + " "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Result{Kind: ResultAnonymous}
	}

	raw := strings.TrimSpace(header[len(prefix):])
	if raw == "" {
		return rejected(token.ErrInvalidSignature)
	}

	claims, err := b.tokens.DecodeCode(raw, token.AudienceAccess)
	if err != nil {
		return rejected(err)
	}

	principal, err := b.principals.FindPrincipalByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return rejected(err)
		}
		// Storage failures are not authentication verdicts; surface them
		// as-is so the caller can answer with a server error.
		return Result{Kind: ResultRejected, Err: err}
	}
	if !principal.Active() {
		return rejected(ErrInactivePrincipal)
	}

	return Result{Kind: ResultAuthenticated, Principal: principal}
}

func rejected(cause error) Result {
	return Result{
		Kind: ResultRejected,
		Err:  fmt.Errorf("%w: %w", ErrAuthenticationFailed, cause),
	}
}
