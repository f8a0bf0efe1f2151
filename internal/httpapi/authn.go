package httpapi

import (
	"errors"
	"net/http"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/obs"
	"wishmaster.org/internal/token"
)

const authHeader = "Authorization"

// withAuth resolves the Authorization header on every request. Absent
// credentials pass through anonymously; handlers that need an identity
// call requirePrincipal. Presented-but-invalid credentials stop here.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.backend == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		result := a.backend.Authenticate(r.Context(), r.Header.Get(authHeader))
		switch result.Kind {
		case auth.ResultAnonymous:
			next.ServeHTTP(w, r)
		case auth.ResultAuthenticated:
			ctx := auth.ContextWithPrincipal(r.Context(), result.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		default:
			if errors.Is(result.Err, auth.ErrAuthenticationFailed) {
				obs.ObserveTokenRejection(rejectionReason(result.Err))
				a.audit(r.Context(), "auth.token.rejected", map[string]any{
					"reason": rejectionReason(result.Err),
				})
				respondFail(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			obs.LogError("authentication backend failure", map[string]any{
				"error": result.Err.Error(),
			})
			respondError(w, r, http.StatusInternalServerError, "authentication error")
		}
	})
}

// requirePrincipal returns the authenticated principal or answers 401.
func (a *API) requirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondFail(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return principal, true
}

// requirePermission checks the permission and answers 401/403 when it
// is missing. Returns the principal on success.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, perm string) (*auth.Principal, bool) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return nil, false
	}
	if a.authz == nil {
		return principal, true
	}
	err := a.authz.RequirePermission(r.Context(), principal.ID, perm)
	if err == nil {
		obs.ObservePermissionCheck(true)
		return principal, true
	}
	if errors.Is(err, auth.ErrPermissionDenied) {
		obs.ObservePermissionCheck(false)
		a.audit(r.Context(), "auth.permission.denied", map[string]any{
			"permission": perm,
		})
		respondFail(w, r, http.StatusForbidden, "permission denied")
		return nil, false
	}
	obs.LogError("authorization lookup failure", map[string]any{
		"error":      err.Error(),
		"permission": perm,
	})
	respondError(w, r, http.StatusInternalServerError, "authorization error")
	return nil, false
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrAudienceMismatch):
		return "audience"
	case errors.Is(err, auth.ErrInactivePrincipal):
		return "inactive"
	case errors.Is(err, auth.ErrPrincipalNotFound):
		return "unknown_principal"
	default:
		return "invalid"
	}
}
