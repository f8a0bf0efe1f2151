package wish

import (
	"context"
	"strings"
	"time"
)

// Service defines wishlist operations. Ownership is enforced here:
// only the wishlist owner may modify it or the wishes it holds.
// Reservations are open to any authenticated principal except the
// owner, so a gift stays a surprise.
type Service interface {
	CreateWishlist(ctx context.Context, ownerID, title string) (Wishlist, error)
	GetWishlist(ctx context.Context, id string) (Wishlist, error)
	ListWishlists(ctx context.Context, ownerID string) ([]Wishlist, error)
	RenameWishlist(ctx context.Context, ownerID, id, title string) (Wishlist, error)
	DeleteWishlist(ctx context.Context, ownerID, id string) error

	AddWish(ctx context.Context, ownerID, wishlistID string, in WishInput) (Wish, error)
	ListWishes(ctx context.Context, wishlistID string) ([]Wish, error)
	UpdateWish(ctx context.Context, ownerID, wishID string, in WishInput) (Wish, error)
	RemoveWish(ctx context.Context, ownerID, wishID string) error

	Reserve(ctx context.Context, principalID, wishID string) (Wish, error)
	Release(ctx context.Context, principalID, wishID string) (Wish, error)
}

// WishInput carries the caller-editable fields of a wish.
type WishInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
}

// Normalize trims the fields and validates them. Store implementations
// call it before writing.
func (in *WishInput) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Link = strings.TrimSpace(in.Link)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Title == "" {
		return ErrInvalidTitle
	}
	if in.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func trimTitle(s string) string { return strings.TrimSpace(s) }

func nowUTC() time.Time { return time.Now().UTC() }
