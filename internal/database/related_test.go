package database

import (
	"context"
	"errors"
	"testing"
)

func TestRelatedGifsOrdering(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	source := createTestGif(t, db, account.ID, "source.gif", []string{"cat", "dance", "fun"})
	twoShared := createTestGif(t, db, account.ID, "two.gif", []string{"cat", "dance", "cozy"})
	oneShared := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "sleep", "calm"})
	createTestGif(t, db, account.ID, "none.gif", []string{"dog", "jump", "run"})

	related, err := db.RelatedGifs(context.Background(), source.ID, 10)
	if err != nil {
		t.Fatalf("RelatedGifs failed: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("expected 2 related gifs, got %d", len(related))
	}
	if related[0].ID != twoShared.ID {
		t.Errorf("first related = gif %d, want gif with 2 shared tags %d", related[0].ID, twoShared.ID)
	}
	if related[1].ID != oneShared.ID {
		t.Errorf("second related = gif %d, want gif with 1 shared tag %d", related[1].ID, oneShared.ID)
	}
	for _, gif := range related {
		if gif.ID == source.ID {
			t.Error("related results must not contain the source gif")
		}
	}
}

func TestRelatedGifsFavoriteTieBreak(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	source := createTestGif(t, db, account.ID, "source.gif", []string{"cat", "dance", "fun"})
	plain := createTestGif(t, db, account.ID, "plain.gif", []string{"cat", "cozy", "calm"})
	liked := createTestGif(t, db, account.ID, "liked.gif", []string{"cat", "sleep", "warm"})

	if _, err := db.ToggleFavorite(context.Background(), account.ID, liked.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	related, err := db.RelatedGifs(context.Background(), source.ID, 10)
	if err != nil {
		t.Fatalf("RelatedGifs failed: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("expected 2 related gifs, got %d", len(related))
	}
	// Both share one tag; the favorited one wins the tie.
	if related[0].ID != liked.ID {
		t.Errorf("first related = gif %d, want favorited gif %d", related[0].ID, liked.ID)
	}
	if related[1].ID != plain.ID {
		t.Errorf("second related = gif %d, want %d", related[1].ID, plain.ID)
	}
}

func TestRelatedGifsLimit(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	source := createTestGif(t, db, account.ID, "source.gif", []string{"cat", "dance", "fun"})
	for _, name := range []string{"a.gif", "b.gif", "c.gif"} {
		createTestGif(t, db, account.ID, name, []string{"cat", "cozy", name})
	}

	related, err := db.RelatedGifs(context.Background(), source.ID, 2)
	if err != nil {
		t.Fatalf("RelatedGifs failed: %v", err)
	}
	if len(related) != 2 {
		t.Errorf("expected limit of 2 respected, got %d", len(related))
	}
}

func TestRelatedGifsNoSharedTags(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	source := createTestGif(t, db, account.ID, "source.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "other.gif", []string{"dog", "jump", "run"})

	related, err := db.RelatedGifs(context.Background(), source.ID, 10)
	if err != nil {
		t.Fatalf("RelatedGifs failed: %v", err)
	}
	if len(related) != 0 {
		t.Errorf("expected no related gifs, got %d", len(related))
	}
}

func TestRelatedGifsSourceNotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.RelatedGifs(context.Background(), 9999, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
