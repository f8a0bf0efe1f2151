// Command smoke runs an end-to-end pass against a live wishmaster API:
// two accounts, one wishlist, one reservation tug-of-war.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"wishmaster.org/internal/client"
	"wishmaster.org/internal/wish"
)

func main() {
	base := os.Getenv("WISHMASTER_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	suffix := time.Now().UnixNano()
	ownerEmail := fmt.Sprintf("smoke-owner-%d@example.com", suffix)
	friendEmail := fmt.Sprintf("smoke-friend-%d@example.com", suffix)
	const password = "smoke-test-pass"

	owner := client.New(base)
	friend := client.New(base)

	for _, acc := range []struct {
		c     *client.Client
		email string
	}{{owner, ownerEmail}, {friend, friendEmail}} {
		if _, err := acc.c.Register(ctx, acc.email, password); err != nil {
			log.Fatalf("register %s: %v", acc.email, err)
		}
		if err := acc.c.Login(ctx, acc.email, password); err != nil {
			log.Fatalf("login %s: %v", acc.email, err)
		}
	}

	wl, err := owner.CreateWishlist(ctx, "Smoke Test Wishlist")
	if err != nil {
		log.Fatalf("create wishlist: %v", err)
	}
	fmt.Printf("wishlist %s created\n", wl.ID)

	item, err := owner.AddWish(ctx, wl.ID, wish.WishInput{
		Title:    "Mechanical keyboard",
		Price:    12900,
		Currency: "EUR",
	})
	if err != nil {
		log.Fatalf("add wish: %v", err)
	}
	fmt.Printf("wish %s added\n", item.ID)

	// The owner must not see who reserves; reserving own wish is denied.
	if _, err := owner.Reserve(ctx, item.ID); !errors.Is(err, client.ErrForbidden) {
		log.Fatalf("owner reserve: got %v, want forbidden", err)
	}

	reserved, err := friend.Reserve(ctx, item.ID)
	if err != nil {
		log.Fatalf("friend reserve: %v", err)
	}
	if !reserved.Reserved {
		log.Fatal("wish not marked reserved")
	}
	fmt.Printf("wish %s reserved\n", reserved.ID)

	if _, err := friend.Reserve(ctx, item.ID); !errors.Is(err, client.ErrConflict) {
		log.Fatalf("double reserve: got %v, want conflict", err)
	}

	if err := friend.Refresh(ctx); err != nil {
		log.Fatalf("refresh: %v", err)
	}
	released, err := friend.Release(ctx, item.ID)
	if err != nil {
		log.Fatalf("release: %v", err)
	}
	if released.Reserved {
		log.Fatal("wish still reserved after release")
	}

	fmt.Println("smoke test passed")
}
