package wish

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestWishlistLifecycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	wl, err := s.CreateWishlist(ctx, "p-1", "  Birthday  ")
	if err != nil {
		t.Fatal(err)
	}
	if wl.Title != "Birthday" {
		t.Fatalf("title not trimmed: %q", wl.Title)
	}

	renamed, err := s.RenameWishlist(ctx, "p-1", wl.ID, "Birthday 2026")
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Title != "Birthday 2026" {
		t.Fatalf("unexpected title %q", renamed.Title)
	}

	if _, err := s.RenameWishlist(ctx, "p-2", wl.ID, "Hijacked"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if err := s.DeleteWishlist(ctx, "p-1", wl.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWishlist(ctx, wl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateWishlistRejectsEmptyTitle(t *testing.T) {
	s := NewInMemory()
	if _, err := s.CreateWishlist(context.Background(), "p-1", "   "); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestWishCRUD(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	wl, _ := s.CreateWishlist(ctx, "p-1", "Birthday")

	w, err := s.AddWish(ctx, "p-1", wl.ID, WishInput{Title: "Bicycle", Price: 25000, Currency: "eur"})
	if err != nil {
		t.Fatal(err)
	}
	if w.Currency != "EUR" {
		t.Fatalf("currency not normalized: %q", w.Currency)
	}

	if _, err := s.AddWish(ctx, "p-2", wl.ID, WishInput{Title: "Nope"}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := s.AddWish(ctx, "p-1", wl.ID, WishInput{Title: "Bad", Price: -1}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}

	updated, err := s.UpdateWish(ctx, "p-1", w.ID, WishInput{Title: "Red bicycle", Price: 30000, Currency: "EUR"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Red bicycle" || updated.Price != 30000 {
		t.Fatalf("update not applied: %+v", updated)
	}

	list, err := s.ListWishes(ctx, wl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 wish, got %d", len(list))
	}

	if err := s.RemoveWish(ctx, "p-1", w.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.ListWishes(ctx, wl.ID); len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestDeleteWishlistCascades(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	wl, _ := s.CreateWishlist(ctx, "p-1", "Birthday")
	w, _ := s.AddWish(ctx, "p-1", wl.ID, WishInput{Title: "Book"})

	if err := s.DeleteWishlist(ctx, "p-1", wl.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reserve(ctx, "p-2", w.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cascaded wish, got %v", err)
	}
}

func TestReservation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	wl, _ := s.CreateWishlist(ctx, "p-1", "Birthday")
	w, _ := s.AddWish(ctx, "p-1", wl.ID, WishInput{Title: "Book"})

	if _, err := s.Reserve(ctx, "p-1", w.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("owner reservation must fail, got %v", err)
	}

	reserved, err := s.Reserve(ctx, "p-2", w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reserved.Reserved || reserved.ReservedBy != "p-2" {
		t.Fatalf("unexpected reservation state: %+v", reserved)
	}

	if _, err := s.Reserve(ctx, "p-3", w.ID); !errors.Is(err, ErrAlreadyReserved) {
		t.Fatalf("expected ErrAlreadyReserved, got %v", err)
	}
	if _, err := s.Release(ctx, "p-3", w.ID); !errors.Is(err, ErrNotReserved) {
		t.Fatalf("release by stranger must fail, got %v", err)
	}

	released, err := s.Release(ctx, "p-2", w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Reserved || released.ReservedBy != "" {
		t.Fatalf("unexpected release state: %+v", released)
	}
}

func TestConcurrentReservationsPickOneWinner(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	wl, _ := s.CreateWishlist(ctx, "p-owner", "Birthday")
	w, _ := s.AddWish(ctx, "p-owner", wl.ID, WishInput{Title: "Console"})

	var wg sync.WaitGroup
	wins := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			if _, err := s.Reserve(ctx, "p-"+id, w.ID); err == nil {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	if n := len(wins); n != 1 {
		t.Fatalf("expected exactly one successful reservation, got %d", n)
	}
}
