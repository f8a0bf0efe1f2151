package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"wishmaster.org/internal/ids"
	"wishmaster.org/internal/wish"
)

var _ wish.Service = (*Store)(nil)

const wishColumns = `id, wishlist_id, title, description, link, price, currency,
	reserved_by, created_at, updated_at`

func (s *Store) CreateWishlist(ctx context.Context, ownerID, title string) (wish.Wishlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return wish.Wishlist{}, wish.ErrInvalidTitle
	}
	var wl wish.Wishlist
	err := s.db.QueryRowContext(ctx, `
		insert into wishlists (id, owner_id, title)
		values ($1, $2, $3)
		returning id, owner_id, title, created_at, updated_at
	`, ids.New(), ownerID, title).
		Scan(&wl.ID, &wl.OwnerID, &wl.Title, &wl.CreatedAt, &wl.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return wish.Wishlist{}, wish.ErrNotFound
		}
		return wish.Wishlist{}, err
	}
	return wl, nil
}

func (s *Store) GetWishlist(ctx context.Context, id string) (wish.Wishlist, error) {
	var wl wish.Wishlist
	err := s.db.QueryRowContext(ctx, `
		select id, owner_id, title, created_at, updated_at
		from wishlists where id = $1
	`, id).Scan(&wl.ID, &wl.OwnerID, &wl.Title, &wl.CreatedAt, &wl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.Wishlist{}, wish.ErrNotFound
	}
	if err != nil {
		return wish.Wishlist{}, err
	}
	return wl, nil
}

func (s *Store) ListWishlists(ctx context.Context, ownerID string) ([]wish.Wishlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, owner_id, title, created_at, updated_at
		from wishlists
		where owner_id = $1
		order by created_at asc
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wish.Wishlist
	for rows.Next() {
		var wl wish.Wishlist
		if err := rows.Scan(&wl.ID, &wl.OwnerID, &wl.Title, &wl.CreatedAt, &wl.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, wl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) RenameWishlist(ctx context.Context, ownerID, id, title string) (wish.Wishlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return wish.Wishlist{}, wish.ErrInvalidTitle
	}
	var wl wish.Wishlist
	err := s.db.QueryRowContext(ctx, `
		update wishlists set title = $3, updated_at = now()
		where id = $1 and owner_id = $2
		returning id, owner_id, title, created_at, updated_at
	`, id, ownerID, title).
		Scan(&wl.ID, &wl.OwnerID, &wl.Title, &wl.CreatedAt, &wl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.Wishlist{}, s.wishlistMiss(ctx, id)
	}
	if err != nil {
		return wish.Wishlist{}, err
	}
	return wl, nil
}

func (s *Store) DeleteWishlist(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from wishlists where id = $1 and owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return s.wishlistMiss(ctx, id)
	}
	return nil
}

func (s *Store) AddWish(ctx context.Context, ownerID, wishlistID string, in wish.WishInput) (wish.Wish, error) {
	if err := in.Normalize(); err != nil {
		return wish.Wish{}, err
	}
	if err := s.requireOwner(ctx, s.db, wishlistID, ownerID); err != nil {
		return wish.Wish{}, err
	}

	var (
		w        wish.Wish
		reserved sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		insert into wishes (id, wishlist_id, title, description, link, price, currency)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+wishColumns+`
	`, ids.New(), wishlistID, in.Title, nullIfEmpty(in.Description), nullIfEmpty(in.Link),
		in.Price, nullIfEmpty(in.Currency)).
		Scan(scanWishDest(&w, &reserved)...)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return wish.Wish{}, wish.ErrNotFound
		}
		return wish.Wish{}, err
	}
	applyReserved(&w, reserved)
	return w, nil
}

func (s *Store) ListWishes(ctx context.Context, wishlistID string) ([]wish.Wish, error) {
	if _, err := s.GetWishlist(ctx, wishlistID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+wishColumns+`
		from wishes
		where wishlist_id = $1
		order by created_at asc
	`, wishlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wish.Wish
	for rows.Next() {
		var (
			w        wish.Wish
			reserved sql.NullString
		)
		if err := rows.Scan(scanWishDest(&w, &reserved)...); err != nil {
			return nil, err
		}
		applyReserved(&w, reserved)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateWish(ctx context.Context, ownerID, wishID string, in wish.WishInput) (wish.Wish, error) {
	if err := in.Normalize(); err != nil {
		return wish.Wish{}, err
	}

	var (
		w        wish.Wish
		reserved sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		update wishes w
		set title = $3, description = $4, link = $5, price = $6, currency = $7,
			updated_at = now()
		from wishlists wl
		where w.id = $1 and wl.id = w.wishlist_id and wl.owner_id = $2
		returning w.id, w.wishlist_id, w.title, w.description, w.link, w.price,
			w.currency, w.reserved_by, w.created_at, w.updated_at
	`, wishID, ownerID, in.Title, nullIfEmpty(in.Description), nullIfEmpty(in.Link),
		in.Price, nullIfEmpty(in.Currency)).
		Scan(scanWishDest(&w, &reserved)...)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.Wish{}, s.wishMiss(ctx, wishID)
	}
	if err != nil {
		return wish.Wish{}, err
	}
	applyReserved(&w, reserved)
	return w, nil
}

func (s *Store) RemoveWish(ctx context.Context, ownerID, wishID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from wishes w
		using wishlists wl
		where w.id = $1 and wl.id = w.wishlist_id and wl.owner_id = $2
	`, wishID, ownerID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return s.wishMiss(ctx, wishID)
	}
	return nil
}

func (s *Store) Reserve(ctx context.Context, principalID, wishID string) (wish.Wish, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wish.Wish{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		ownerID  string
		reserved sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		select wl.owner_id, w.reserved_by
		from wishes w
		join wishlists wl on wl.id = w.wishlist_id
		where w.id = $1
		for update of w
	`, wishID).Scan(&ownerID, &reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.Wish{}, wish.ErrNotFound
	}
	if err != nil {
		return wish.Wish{}, err
	}
	if ownerID == principalID {
		return wish.Wish{}, wish.ErrNotOwner
	}
	if reserved.Valid {
		return wish.Wish{}, wish.ErrAlreadyReserved
	}

	var (
		w   wish.Wish
		res sql.NullString
	)
	if err := tx.QueryRowContext(ctx, `
		update wishes set reserved_by = $2, updated_at = now()
		where id = $1
		returning `+wishColumns+`
	`, wishID, principalID).Scan(scanWishDest(&w, &res)...); err != nil {
		return wish.Wish{}, err
	}
	if err := tx.Commit(); err != nil {
		return wish.Wish{}, err
	}
	applyReserved(&w, res)
	return w, nil
}

func (s *Store) Release(ctx context.Context, principalID, wishID string) (wish.Wish, error) {
	var (
		w        wish.Wish
		reserved sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		update wishes set reserved_by = null, updated_at = now()
		where id = $1 and reserved_by = $2
		returning `+wishColumns+`
	`, wishID, principalID).Scan(scanWishDest(&w, &reserved)...)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.getWish(ctx, wishID); getErr != nil {
			return wish.Wish{}, getErr
		}
		return wish.Wish{}, wish.ErrNotReserved
	}
	if err != nil {
		return wish.Wish{}, err
	}
	applyReserved(&w, reserved)
	return w, nil
}

// wishlistMiss distinguishes a missing wishlist from a foreign one so
// handlers can answer 404 vs 403.
func (s *Store) wishlistMiss(ctx context.Context, id string) error {
	if _, err := s.GetWishlist(ctx, id); err != nil {
		return err
	}
	return wish.ErrNotOwner
}

func (s *Store) wishMiss(ctx context.Context, wishID string) error {
	if _, err := s.getWish(ctx, wishID); err != nil {
		return err
	}
	return wish.ErrNotOwner
}

func (s *Store) getWish(ctx context.Context, wishID string) (wish.Wish, error) {
	var (
		w        wish.Wish
		reserved sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select `+wishColumns+`
		from wishes where id = $1
	`, wishID).Scan(scanWishDest(&w, &reserved)...)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.Wish{}, wish.ErrNotFound
	}
	if err != nil {
		return wish.Wish{}, err
	}
	applyReserved(&w, reserved)
	return w, nil
}

type txQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) requireOwner(ctx context.Context, q txQuerier, wishlistID, ownerID string) error {
	var owner string
	err := q.QueryRowContext(ctx, `select owner_id from wishlists where id = $1`, wishlistID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return wish.ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return wish.ErrNotOwner
	}
	return nil
}

// scanWishDest returns scan targets matching wishColumns. Nullable
// text columns scan through NullString intermediaries.
func scanWishDest(w *wish.Wish, reserved *sql.NullString) []any {
	return []any{
		&w.ID, &w.WishlistID, &w.Title,
		nullStr(&w.Description), nullStr(&w.Link),
		&w.Price, nullStr(&w.Currency),
		reserved, &w.CreatedAt, &w.UpdatedAt,
	}
}

func applyReserved(w *wish.Wish, reserved sql.NullString) {
	if reserved.Valid {
		w.Reserved = true
		w.ReservedBy = reserved.String
	}
}

// nullStr adapts a plain string field to scan a nullable column.
type nullStrDest struct{ p *string }

func nullStr(p *string) *nullStrDest { return &nullStrDest{p: p} }

func (d *nullStrDest) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	*d.p = ns.String
	return nil
}
