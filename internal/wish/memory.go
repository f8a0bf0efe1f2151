package wish

import (
	"context"
	"sort"
	"sync"

	"wishmaster.org/internal/ids"
)

// InMemory implements Service with in-process concurrency safety.
// It backs local development and tests; production runs on Postgres.
type InMemory struct {
	mu        sync.RWMutex
	wishlists map[string]*Wishlist
	wishes    map[string]*Wish
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		wishlists: make(map[string]*Wishlist),
		wishes:    make(map[string]*Wish),
	}
}

func (s *InMemory) CreateWishlist(ctx context.Context, ownerID, title string) (Wishlist, error) {
	title = trimTitle(title)
	if title == "" {
		return Wishlist{}, ErrInvalidTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUTC()
	wl := &Wishlist{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wishlists[wl.ID] = wl
	return *wl, nil
}

func (s *InMemory) GetWishlist(ctx context.Context, id string) (Wishlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wl, ok := s.wishlists[id]
	if !ok {
		return Wishlist{}, ErrNotFound
	}
	return *wl, nil
}

func (s *InMemory) ListWishlists(ctx context.Context, ownerID string) ([]Wishlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Wishlist
	for _, wl := range s.wishlists {
		if wl.OwnerID == ownerID {
			out = append(out, *wl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) RenameWishlist(ctx context.Context, ownerID, id, title string) (Wishlist, error) {
	title = trimTitle(title)
	if title == "" {
		return Wishlist{}, ErrInvalidTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wl, ok := s.wishlists[id]
	if !ok {
		return Wishlist{}, ErrNotFound
	}
	if wl.OwnerID != ownerID {
		return Wishlist{}, ErrNotOwner
	}
	wl.Title = title
	wl.UpdatedAt = nowUTC()
	return *wl, nil
}

func (s *InMemory) DeleteWishlist(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wl, ok := s.wishlists[id]
	if !ok {
		return ErrNotFound
	}
	if wl.OwnerID != ownerID {
		return ErrNotOwner
	}
	delete(s.wishlists, id)
	for wid, w := range s.wishes {
		if w.WishlistID == id {
			delete(s.wishes, wid)
		}
	}
	return nil
}

func (s *InMemory) AddWish(ctx context.Context, ownerID, wishlistID string, in WishInput) (Wish, error) {
	if err := in.Normalize(); err != nil {
		return Wish{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wl, ok := s.wishlists[wishlistID]
	if !ok {
		return Wish{}, ErrNotFound
	}
	if wl.OwnerID != ownerID {
		return Wish{}, ErrNotOwner
	}

	now := nowUTC()
	w := &Wish{
		ID:          ids.New(),
		WishlistID:  wishlistID,
		Title:       in.Title,
		Description: in.Description,
		Link:        in.Link,
		Price:       in.Price,
		Currency:    in.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.wishes[w.ID] = w
	return *w, nil
}

func (s *InMemory) ListWishes(ctx context.Context, wishlistID string) ([]Wish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wishlists[wishlistID]; !ok {
		return nil, ErrNotFound
	}
	var out []Wish
	for _, w := range s.wishes {
		if w.WishlistID == wishlistID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) UpdateWish(ctx context.Context, ownerID, wishID string, in WishInput) (Wish, error) {
	if err := in.Normalize(); err != nil {
		return Wish{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.ownedWish(ownerID, wishID)
	if err != nil {
		return Wish{}, err
	}
	w.Title = in.Title
	w.Description = in.Description
	w.Link = in.Link
	w.Price = in.Price
	w.Currency = in.Currency
	w.UpdatedAt = nowUTC()
	return *w, nil
}

func (s *InMemory) RemoveWish(ctx context.Context, ownerID, wishID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedWish(ownerID, wishID); err != nil {
		return err
	}
	delete(s.wishes, wishID)
	return nil
}

func (s *InMemory) Reserve(ctx context.Context, principalID, wishID string) (Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishes[wishID]
	if !ok {
		return Wish{}, ErrNotFound
	}
	// Owners cannot reserve their own wishes.
	if wl, ok := s.wishlists[w.WishlistID]; ok && wl.OwnerID == principalID {
		return Wish{}, ErrNotOwner
	}
	if w.Reserved {
		return Wish{}, ErrAlreadyReserved
	}
	w.Reserved = true
	w.ReservedBy = principalID
	w.UpdatedAt = nowUTC()
	return *w, nil
}

func (s *InMemory) Release(ctx context.Context, principalID, wishID string) (Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishes[wishID]
	if !ok {
		return Wish{}, ErrNotFound
	}
	if !w.Reserved {
		return Wish{}, ErrNotReserved
	}
	if w.ReservedBy != principalID {
		return Wish{}, ErrNotReserved
	}
	w.Reserved = false
	w.ReservedBy = ""
	w.UpdatedAt = nowUTC()
	return *w, nil
}

// ownedWish resolves a wish and checks the caller owns its wishlist.
// Callers must hold the write lock.
func (s *InMemory) ownedWish(ownerID, wishID string) (*Wish, error) {
	w, ok := s.wishes[wishID]
	if !ok {
		return nil, ErrNotFound
	}
	wl, ok := s.wishlists[w.WishlistID]
	if !ok {
		return nil, ErrNotFound
	}
	if wl.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return w, nil
}
