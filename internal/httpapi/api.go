// Package httpapi is the HTTP layer. Responses use the JSEND envelope:
// "success" carries data, "fail" carries caller mistakes, "error"
// carries server faults.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"wishmaster.org/internal/audit"
	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/event"
	"wishmaster.org/internal/obs"
	"wishmaster.org/internal/wish"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// PrincipalRegistry covers the write side of principal management the
// API needs for sign-up.
type PrincipalRegistry interface {
	CreatePrincipal(ctx context.Context, email, passwordHash string, status auth.Status) (*auth.Principal, error)
}

// Catalog lists the authorization vocabulary for read-only admin
// endpoints.
type Catalog interface {
	ListGroups(ctx context.Context) ([]auth.Group, error)
	ListRoles(ctx context.Context) ([]auth.Role, error)
	ListPermissions(ctx context.Context) ([]auth.Permission, error)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	backend    *auth.Backend
	sessions   *auth.Service
	authz      *auth.Authorizer
	registry   PrincipalRegistry
	catalog    Catalog
	wishes     wish.Service
	events     *event.Bus
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// Deps bundles the service dependencies of the API.
type Deps struct {
	Backend    *auth.Backend
	Sessions   *auth.Service
	Authorizer *auth.Authorizer
	Registry   PrincipalRegistry
	Catalog    Catalog
	Wishes     wish.Service
	Events     *event.Bus
	ReadyProbe ReadyProbe
	Version    string
}

func New(deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		backend:    deps.Backend,
		sessions:   deps.Sessions,
		authz:      deps.Authorizer,
		registry:   deps.Registry,
		catalog:    deps.Catalog,
		wishes:     deps.Wishes,
		events:     deps.Events,
		readyProbe: deps.ReadyProbe,
		version:    deps.Version,
		rateBurst:  50,
		ratePerSec: 25,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/v1/register", a.handleRegister)
	a.mux.HandleFunc("/api/v1/login", a.handleLogin)
	a.mux.HandleFunc("/api/v1/token/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/v1/users/me", a.handleMe)

	a.mux.HandleFunc("/api/v1/wishlists", a.handleWishlistsCollection)
	a.mux.HandleFunc("/api/v1/wishlists/", a.handleWishlistResource)
	a.mux.HandleFunc("/api/v1/wishes/", a.handleWishResource)
	a.mux.HandleFunc("/api/v1/events", a.handleEvents)

	a.mux.HandleFunc("/api/v1/groups", a.handleGroups)
	a.mux.HandleFunc("/api/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/api/v1/permissions", a.handlePermissions)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{
		"service": "wishmaster-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "not ready")
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"ready": true})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondSuccess wraps data in a JSEND success envelope.
func respondSuccess(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{
		"status": "success",
		"data":   data,
	})
}

// respondFail reports a caller mistake (4xx).
func respondFail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	data := map[string]any{"message": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		data["request_id"] = rid
	}
	writeJSON(w, code, map[string]any{
		"status": "fail",
		"data":   data,
	})
}

// respondError reports a server fault (5xx).
func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"status":  "error",
		"message": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	respondFail(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
