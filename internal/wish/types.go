package wish

import (
	"errors"
	"time"
)

// Wishlist groups wishes under a single owner.
type Wishlist struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Wish is a single item on a wishlist. Price is in minor units
// (e.g., cents). No floats.
type Wish struct {
	ID          string    `json:"id"`
	WishlistID  string    `json:"wishlist_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	Price       int64     `json:"price,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Reserved    bool      `json:"reserved"`
	ReservedBy  string    `json:"reserved_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrNotFound        = errors.New("wish: not found")
	ErrInvalidTitle    = errors.New("wish: title must not be empty")
	ErrInvalidPrice    = errors.New("wish: price must not be negative")
	ErrNotOwner        = errors.New("wish: principal does not own the wishlist")
	ErrAlreadyReserved = errors.New("wish: already reserved")
	ErrNotReserved     = errors.New("wish: not reserved")
)
