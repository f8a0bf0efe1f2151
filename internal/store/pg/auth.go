package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/ids"
)

var (
	_ auth.PrincipalStore           = (*Store)(nil)
	_ auth.GrantStore               = (*Store)(nil)
	_ auth.PrincipalPermissionStore = (*Store)(nil)
)

func (s *Store) FindPrincipalByID(ctx context.Context, id string) (*auth.Principal, error) {
	return s.findPrincipal(ctx, `
		select id, email, password_hash, status, created_at, updated_at
		from principals where id = $1
	`, id)
}

func (s *Store) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	return s.findPrincipal(ctx, `
		select id, email, password_hash, status, created_at, updated_at
		from principals where email = $1
	`, email)
}

func (s *Store) findPrincipal(ctx context.Context, query, arg string) (*auth.Principal, error) {
	var p auth.Principal
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrincipal inserts a new principal. A duplicate email maps to
// auth.ErrEmailTaken.
func (s *Store) CreatePrincipal(ctx context.Context, email, passwordHash string, status auth.Status) (*auth.Principal, error) {
	var p auth.Principal
	err := s.db.QueryRowContext(ctx, `
		insert into principals (id, email, password_hash, status)
		values ($1, $2, $3, $4)
		returning id, email, password_hash, status, created_at, updated_at
	`, ids.New(), email, passwordHash, string(status)).
		Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, auth.ErrEmailTaken
		}
		return nil, err
	}
	return &p, nil
}

// SetPrincipalStatus moves a principal through its lifecycle.
func (s *Store) SetPrincipalStatus(ctx context.Context, id string, status auth.Status) error {
	res, err := s.db.ExecContext(ctx, `
		update principals set status = $2, updated_at = now() where id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrPrincipalNotFound
	}
	return nil
}

func (s *Store) GroupsFor(ctx context.Context, principalID string) ([]auth.Group, error) {
	rows, err := s.scanNameRows(ctx, `
		select g.id, g.name, g.created_at
		from principal_groups pg
		join groups g on g.id = pg.group_id
		where pg.principal_id = $1
		order by g.name
	`, principalID)
	if err != nil {
		return nil, err
	}
	groups := make([]auth.Group, len(rows))
	for i, r := range rows {
		groups[i] = auth.Group{ID: r.id, Name: r.name, CreatedAt: r.created}
	}
	return groups, nil
}

func (s *Store) RolesFor(ctx context.Context, groupID string) ([]auth.Role, error) {
	rows, err := s.scanNameRows(ctx, `
		select r.id, r.name, r.created_at
		from group_roles gr
		join roles r on r.id = gr.role_id
		where gr.group_id = $1
		order by r.name
	`, groupID)
	if err != nil {
		return nil, err
	}
	return toRoles(rows), nil
}

func (s *Store) PermissionsFor(ctx context.Context, roleID string) ([]auth.Permission, error) {
	rows, err := s.scanNameRows(ctx, `
		select p.id, p.name, p.created_at
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	return toPermissions(rows), nil
}

// PermissionsForPrincipal resolves the whole grant chain in one joined
// query; the authorizer prefers it over the three chain lookups.
func (s *Store) PermissionsForPrincipal(ctx context.Context, principalID string) ([]auth.Permission, error) {
	rows, err := s.scanNameRows(ctx, `
		select distinct p.id, p.name, p.created_at
		from principal_groups pg
		join group_roles gr on gr.group_id = pg.group_id
		join role_permissions rp on rp.role_id = gr.role_id
		join permissions p on p.id = rp.permission_id
		where pg.principal_id = $1
		order by p.name
	`, principalID)
	if err != nil {
		return nil, err
	}
	return toPermissions(rows), nil
}

func (s *Store) ListGroups(ctx context.Context) ([]auth.Group, error) {
	rows, err := s.scanNameRows(ctx, `select id, name, created_at from groups order by name`)
	if err != nil {
		return nil, err
	}
	groups := make([]auth.Group, len(rows))
	for i, r := range rows {
		groups[i] = auth.Group{ID: r.id, Name: r.name, CreatedAt: r.created}
	}
	return groups, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.scanNameRows(ctx, `select id, name, created_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	return toRoles(rows), nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	rows, err := s.scanNameRows(ctx, `select id, name, created_at from permissions order by name`)
	if err != nil {
		return nil, err
	}
	return toPermissions(rows), nil
}

// EnsurePermissions inserts any missing permission rows. Existing rows
// are left untouched, so the call is safe on every startup.
func (s *Store) EnsurePermissions(ctx context.Context, perms []auth.Permission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range perms {
		if _, err := tx.ExecContext(ctx, `
			insert into permissions (id, name)
			values ($1, $2)
			on conflict (name) do nothing
		`, ids.New(), p.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddPrincipalToGroup links a principal into a group. Unknown ids map
// to auth.ErrPrincipalNotFound; an existing link is a no-op.
func (s *Store) AddPrincipalToGroup(ctx context.Context, principalID, groupID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into principal_groups (principal_id, group_id)
		values ($1, $2)
		on conflict do nothing
	`, principalID, groupID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrPrincipalNotFound
		}
		return err
	}
	return nil
}

// nameRow is the shared row shape of groups, roles and permissions.
type nameRow struct {
	id      string
	name    string
	created time.Time
}

func (s *Store) scanNameRows(ctx context.Context, query string, args ...any) ([]nameRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []nameRow
	for rows.Next() {
		var r nameRow
		if err := rows.Scan(&r.id, &r.name, &r.created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toRoles(rows []nameRow) []auth.Role {
	roles := make([]auth.Role, len(rows))
	for i, r := range rows {
		roles[i] = auth.Role{ID: r.id, Name: r.name, CreatedAt: r.created}
	}
	return roles
}

func toPermissions(rows []nameRow) []auth.Permission {
	perms := make([]auth.Permission, len(rows))
	for i, r := range rows {
		perms[i] = auth.Permission{ID: r.id, Name: r.name, CreatedAt: r.created}
	}
	return perms
}
