package httpapi

import (
	"context"
	"net/http"
	"time"

	"wishmaster.org/internal/auth"
)

type namedResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func (a *API) handleGroups(w http.ResponseWriter, r *http.Request) {
	a.listCatalog(w, r, auth.PermGroupRead, func(ctx context.Context) ([]namedResponse, error) {
		groups, err := a.catalog.ListGroups(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]namedResponse, len(groups))
		for i, g := range groups {
			out[i] = toNamedResponse(g.ID, g.Name, g.CreatedAt)
		}
		return out, nil
	})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	a.listCatalog(w, r, auth.PermRoleRead, func(ctx context.Context) ([]namedResponse, error) {
		roles, err := a.catalog.ListRoles(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]namedResponse, len(roles))
		for i, role := range roles {
			out[i] = toNamedResponse(role.ID, role.Name, role.CreatedAt)
		}
		return out, nil
	})
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	a.listCatalog(w, r, auth.PermPermissionRead, func(ctx context.Context) ([]namedResponse, error) {
		perms, err := a.catalog.ListPermissions(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]namedResponse, len(perms))
		for i, p := range perms {
			out[i] = toNamedResponse(p.ID, p.Name, p.CreatedAt)
		}
		return out, nil
	})
}

func (a *API) listCatalog(w http.ResponseWriter, r *http.Request, perm string, list func(context.Context) ([]namedResponse, error)) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.catalog == nil {
		respondError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	if _, ok := a.requirePermission(w, r, perm); !ok {
		return
	}
	items, err := list(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []namedResponse{}
	}
	respondSuccess(w, http.StatusOK, items)
}

func toNamedResponse(id, name string, created time.Time) namedResponse {
	return namedResponse{ID: id, Name: name, CreatedAt: formatTime(created)}
}
