package auth

import "context"

// PrincipalStore is the read contract for principal lookup. Lookups are
// idempotent reads; implementations must honor context cancellation and
// return ErrPrincipalNotFound when nothing matches.
type PrincipalStore interface {
	FindPrincipalByID(ctx context.Context, id string) (*Principal, error)
	FindPrincipalByEmail(ctx context.Context, email string) (*Principal, error)
}

// GrantStore resolves the membership chain used for authorization.
// All methods are read-only; the data may change between calls and the
// authorizer re-resolves it on every check.
type GrantStore interface {
	GroupsFor(ctx context.Context, principalID string) ([]Group, error)
	RolesFor(ctx context.Context, groupID string) ([]Role, error)
	PermissionsFor(ctx context.Context, roleID string) ([]Permission, error)
}
