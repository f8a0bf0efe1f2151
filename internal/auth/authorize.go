package auth

import (
	"context"
	"strings"
)

// Authorizer decides whether a principal holds a named permission by
// walking its group → role → permission chains. Every check re-resolves
// the chains against the store: memberships can change between
// requests, so nothing is cached here.
type Authorizer struct {
	grants GrantStore
}

// NewAuthorizer constructs an Authorizer over a read-only grant store.
func NewAuthorizer(grants GrantStore) (*Authorizer, error) {
	if grants == nil {
		return nil, errNilStore
	}
	return &Authorizer{grants: grants}, nil
}

// PrincipalPermissionStore is an optional fast path a GrantStore may
// offer: the whole group → role → permission chain resolved in one
// call. The SQL store answers it with a single joined query.
type PrincipalPermissionStore interface {
	PermissionsForPrincipal(ctx context.Context, principalID string) ([]Permission, error)
}

// Permissions computes the union of permission names reachable from the
// principal's group memberships. A principal with no groups gets the
// empty set.
func (a *Authorizer) Permissions(ctx context.Context, principalID string) (map[string]struct{}, error) {
	if fast, ok := a.grants.(PrincipalPermissionStore); ok {
		list, err := fast.PermissionsForPrincipal(ctx, principalID)
		if err != nil {
			return nil, err
		}
		perms := make(map[string]struct{}, len(list))
		for _, p := range list {
			perms[p.Name] = struct{}{}
		}
		return perms, nil
	}

	groups, err := a.grants.GroupsFor(ctx, principalID)
	if err != nil {
		return nil, err
	}

	perms := make(map[string]struct{})
	seenRoles := make(map[string]struct{})
	for _, group := range groups {
		roles, err := a.grants.RolesFor(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			// The same role may be reachable through several groups;
			// resolving it once per check is enough.
			if _, ok := seenRoles[role.ID]; ok {
				continue
			}
			seenRoles[role.ID] = struct{}{}
			list, err := a.grants.PermissionsFor(ctx, role.ID)
			if err != nil {
				return nil, err
			}
			for _, p := range list {
				perms[p.Name] = struct{}{}
			}
		}
	}
	return perms, nil
}

// HasPermission reports whether the principal holds the permission.
// Matching is a case-sensitive exact comparison. An empty permission
// set denies without error.
func (a *Authorizer) HasPermission(ctx context.Context, principalID, permission string) (bool, error) {
	permission = strings.TrimSpace(permission)
	if principalID == "" || permission == "" {
		return false, nil
	}
	perms, err := a.Permissions(ctx, principalID)
	if err != nil {
		return false, err
	}
	_, ok := perms[permission]
	return ok, nil
}

// RequirePermission is HasPermission as a guard: it returns
// ErrPermissionDenied when the permission is absent.
func (a *Authorizer) RequirePermission(ctx context.Context, principalID, permission string) error {
	ok, err := a.HasPermission(ctx, principalID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}
