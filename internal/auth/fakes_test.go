package auth

import (
	"context"
	"testing"
	"time"

	"wishmaster.org/internal/token"
)

// fakeStore implements PrincipalStore and GrantStore in memory for
// unit tests.
type fakeStore struct {
	principals map[string]*Principal
	emails     map[string]string
	groups     map[string][]Group      // principal id -> groups
	roles      map[string][]Role       // group id -> roles
	perms      map[string][]Permission // role id -> permissions
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		principals: make(map[string]*Principal),
		emails:     make(map[string]string),
		groups:     make(map[string][]Group),
		roles:      make(map[string][]Role),
		perms:      make(map[string][]Permission),
	}
}

func (f *fakeStore) addPrincipal(t *testing.T, id, email, password string, status Status) *Principal {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	p := &Principal{ID: id, Email: email, PasswordHash: hash, Status: status}
	f.principals[id] = p
	f.emails[email] = id
	return p
}

func (f *fakeStore) FindPrincipalByID(_ context.Context, id string) (*Principal, error) {
	p, ok := f.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) FindPrincipalByEmail(_ context.Context, email string) (*Principal, error) {
	id, ok := f.emails[email]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return f.FindPrincipalByID(context.Background(), id)
}

func (f *fakeStore) GroupsFor(_ context.Context, principalID string) ([]Group, error) {
	return f.groups[principalID], nil
}

func (f *fakeStore) RolesFor(_ context.Context, groupID string) ([]Role, error) {
	return f.roles[groupID], nil
}

func (f *fakeStore) PermissionsFor(_ context.Context, roleID string) ([]Permission, error) {
	return f.perms[roleID], nil
}

func newTestTokens(t *testing.T, now func() time.Time) *token.Manager {
	t.Helper()
	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"), token.WithClock(now))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	mgr, err := token.NewManager(codec,
		token.WithAccessLifetime(15*time.Minute),
		token.WithRefreshLifetime(24*time.Hour),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}
