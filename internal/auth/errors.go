package auth

import "errors"

var (
	// ErrPrincipalNotFound indicates no principal exists for the id or
	// email used in a lookup.
	ErrPrincipalNotFound = errors.New("auth: principal not found")
	// ErrInvalidCredentials indicates a login with a wrong email or
	// password. Deliberately indistinguishable from the caller's side.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInactivePrincipal indicates the principal exists but its status
	// (archived or unconfirmed) disqualifies it from authenticating.
	ErrInactivePrincipal = errors.New("auth: principal is not confirmed")
	// ErrAuthenticationFailed is the umbrella rejection returned to the
	// transport layer. The underlying cause is wrapped for server-side
	// logging but must not reach response bodies.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
	// ErrPermissionDenied indicates an authenticated principal lacks a
	// required permission.
	ErrPermissionDenied = errors.New("auth: permission denied")
	// ErrEmailTaken indicates a registration attempt with an email that
	// already belongs to another principal.
	ErrEmailTaken = errors.New("auth: email already registered")
)

var errNilStore = errors.New("auth: store is required")
