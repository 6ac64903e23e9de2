package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestToggleFavorite(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	state, err := db.ToggleFavorite(context.Background(), account.ID, gif.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !state.Favorited || state.FavoriteCount != 1 {
		t.Errorf("first toggle: favorited=%v count=%d, want true/1", state.Favorited, state.FavoriteCount)
	}

	state, err = db.ToggleFavorite(context.Background(), account.ID, gif.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if state.Favorited || state.FavoriteCount != 0 {
		t.Errorf("second toggle: favorited=%v count=%d, want false/0", state.Favorited, state.FavoriteCount)
	}
}

func TestToggleFavoriteNotFound(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	if _, err := db.ToggleFavorite(context.Background(), account.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleFavoriteMultipleAccounts(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestAccount(t, db, "alice")
	bob := createTestAccount(t, db, "bob")
	gif := createTestGif(t, db, alice.ID, "dance.gif", []string{"cat", "dance", "fun"})

	if _, err := db.ToggleFavorite(context.Background(), alice.ID, gif.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	state, err := db.ToggleFavorite(context.Background(), bob.ID, gif.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if state.FavoriteCount != 2 {
		t.Errorf("count after two accounts = %d, want 2", state.FavoriteCount)
	}

	// Alice un-favoriting leaves Bob's favorite intact.
	state, err = db.ToggleFavorite(context.Background(), alice.ID, gif.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if state.Favorited || state.FavoriteCount != 1 {
		t.Errorf("after alice untoggles: favorited=%v count=%d, want false/1", state.Favorited, state.FavoriteCount)
	}
}

// Concurrent toggles from many accounts must leave the counter equal to
// the number of favorites rows, whatever the interleaving.
func TestToggleFavoriteConcurrent(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestAccount(t, db, "owner")
	gif := createTestGif(t, db, owner.ID, "dance.gif", []string{"cat", "dance", "fun"})

	const accounts = 8
	ids := make([]int64, accounts)
	for i := range ids {
		ids[i] = createTestAccount(t, db, fmt.Sprintf("account%d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(accountID int64) {
			defer wg.Done()
			// Odd number of toggles ends favorited.
			for i := 0; i < 3; i++ {
				if _, err := db.ToggleFavorite(context.Background(), accountID, gif.ID); err != nil {
					t.Errorf("ToggleFavorite failed: %v", err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	loaded, err := db.GetGif(context.Background(), gif.ID)
	if err != nil {
		t.Fatalf("GetGif failed: %v", err)
	}
	if loaded.FavoriteCount != accounts {
		t.Errorf("favorite count = %d, want %d", loaded.FavoriteCount, accounts)
	}

	states, err := db.CheckFavorites(context.Background(), ids[0], []int64{gif.ID})
	if err != nil {
		t.Fatalf("CheckFavorites failed: %v", err)
	}
	if !states[gif.ID] {
		t.Error("expected account0 to end favorited after odd toggle count")
	}
}

func TestCheckFavoritesExplicitFalse(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	liked := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	other := createTestGif(t, db, account.ID, "two.gif", []string{"dog", "jump", "fun"})

	if _, err := db.ToggleFavorite(context.Background(), account.ID, liked.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	states, err := db.CheckFavorites(context.Background(), account.ID, []int64{liked.ID, other.ID, 9999})
	if err != nil {
		t.Fatalf("CheckFavorites failed: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(states))
	}
	if !states[liked.ID] {
		t.Error("expected liked gif to be true")
	}
	if states[other.ID] {
		t.Error("expected unfavorited gif to be false")
	}
	if fav, present := states[9999]; !present || fav {
		t.Error("expected nonexistent gif to be present and false")
	}
}

func TestCheckFavoritesEmptyInput(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	states, err := db.CheckFavorites(context.Background(), account.ID, nil)
	if err != nil {
		t.Fatalf("CheckFavorites failed: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected empty map, got %v", states)
	}
}

func TestListFavorites(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	first := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	second := createTestGif(t, db, account.ID, "two.gif", []string{"dog", "jump", "fun"})

	for _, id := range []int64{first.ID, second.ID} {
		if _, err := db.ToggleFavorite(context.Background(), account.ID, id); err != nil {
			t.Fatalf("ToggleFavorite failed: %v", err)
		}
	}

	page, err := db.ListFavorites(context.Background(), account.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 favorites, got total=%d items=%d", page.Total, len(page.Items))
	}
	// Most recently favorited first.
	if page.Items[0].ID != second.ID {
		t.Errorf("first item = gif %d, want most recent favorite %d", page.Items[0].ID, second.ID)
	}
	if len(page.Items[0].Tags) != 3 {
		t.Errorf("expected hydrated tags on favorites, got %v", page.Items[0].Tags)
	}
}
