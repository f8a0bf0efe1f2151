package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/event"
	"wishmaster.org/internal/ids"
	"wishmaster.org/internal/revoke"
	"wishmaster.org/internal/token"
	"wishmaster.org/internal/wish"
)

// memDirectory backs the API tests with an in-memory principal and
// grant store.
type memDirectory struct {
	mu         sync.Mutex
	principals map[string]*auth.Principal
	emails     map[string]string
	groups     map[string][]auth.Group
	roles      map[string][]auth.Role
	perms      map[string][]auth.Permission
	catalog    []auth.Permission
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		principals: make(map[string]*auth.Principal),
		emails:     make(map[string]string),
		groups:     make(map[string][]auth.Group),
		roles:      make(map[string][]auth.Role),
		perms:      make(map[string][]auth.Permission),
	}
}

func (d *memDirectory) FindPrincipalByID(_ context.Context, id string) (*auth.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[id]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *memDirectory) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	d.mu.Lock()
	id, ok := d.emails[email]
	d.mu.Unlock()
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	return d.FindPrincipalByID(ctx, id)
}

func (d *memDirectory) CreatePrincipal(_ context.Context, email, passwordHash string, status auth.Status) (*auth.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.emails[email]; taken {
		return nil, auth.ErrEmailTaken
	}
	now := time.Now().UTC()
	p := &auth.Principal{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	d.principals[p.ID] = p
	d.emails[email] = p.ID
	cp := *p
	return &cp, nil
}

func (d *memDirectory) GroupsFor(_ context.Context, principalID string) ([]auth.Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.groups[principalID], nil
}

func (d *memDirectory) RolesFor(_ context.Context, groupID string) ([]auth.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roles[groupID], nil
}

func (d *memDirectory) PermissionsFor(_ context.Context, roleID string) ([]auth.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.perms[roleID], nil
}

func (d *memDirectory) ListGroups(_ context.Context) ([]auth.Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []auth.Group
	seen := make(map[string]struct{})
	for _, groups := range d.groups {
		for _, g := range groups {
			if _, ok := seen[g.ID]; ok {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *memDirectory) ListRoles(_ context.Context) ([]auth.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []auth.Role
	seen := make(map[string]struct{})
	for _, roles := range d.roles {
		for _, role := range roles {
			if _, ok := seen[role.ID]; ok {
				continue
			}
			seen[role.ID] = struct{}{}
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *memDirectory) ListPermissions(_ context.Context) ([]auth.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.catalog, nil
}

// seedPrincipal registers a confirmed principal and grants it the
// given permissions through a dedicated group and role.
func (d *memDirectory) seedPrincipal(t *testing.T, email, password string, perms ...string) *auth.Principal {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	p, err := d.CreatePrincipal(context.Background(), email, hash, auth.StatusConfirmed)
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	if len(perms) == 0 {
		return p
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	groupID := "g-" + p.ID
	roleID := "r-" + p.ID
	d.groups[p.ID] = []auth.Group{{ID: groupID, Name: "grp-" + email}}
	d.roles[groupID] = []auth.Role{{ID: roleID, Name: "role-" + email}}
	for _, name := range perms {
		perm := auth.Permission{ID: ids.New(), Name: name}
		d.perms[roleID] = append(d.perms[roleID], perm)
		d.catalog = append(d.catalog, perm)
	}
	return p
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type testEnv struct {
	*apiClient
	dir    *memDirectory
	tokens *token.Manager
	wishes *wish.InMemory
	events *event.Bus
}

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()

	dir := newMemDirectory()
	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tokens, err := token.NewManager(codec)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	sessions, err := auth.NewService(tokens, dir, revoke.NewMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	backend, err := auth.NewBackend(tokens, dir)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	authz, err := auth.NewAuthorizer(dir)
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}

	wishes := wish.NewInMemory()
	bus := event.NewBus()
	api := New(Deps{
		Backend:    backend,
		Sessions:   sessions,
		Authorizer: authz,
		Registry:   dir,
		Catalog:    dir,
		Wishes:     wishes,
		Events:     bus,
		Version:    "test",
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		apiClient: &apiClient{baseURL: srv.URL, client: srv.Client(), t: t},
		dir:       dir,
		tokens:    tokens,
		wishes:    wishes,
		events:    bus,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func decodeData[T any](t *testing.T, resp *http.Response, wantStatus int) T {
	t.Helper()
	if resp.StatusCode != wantStatus {
		env := decodeEnvelope(t, resp)
		t.Fatalf("unexpected status %d (want %d): %s %s", resp.StatusCode, wantStatus, env.Status, env.Data)
	}
	env := decodeEnvelope(t, resp)
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %q", env.Status)
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return v
}

func (c *apiClient) login(email, password string) tokenPairResponse {
	c.t.Helper()
	resp := c.post("/api/v1/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	return decodeData[tokenPairResponse](c.t, resp, http.StatusOK)
}

func bearer(pair tokenPairResponse) map[string]string {
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}
