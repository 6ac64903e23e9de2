package database

import (
	"context"
	"errors"
	"testing"
)

func TestAddTagToGif(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	if err := db.AddTagToGif(context.Background(), gif.ID, account.ID, "  Party "); err != nil {
		t.Fatalf("AddTagToGif failed: %v", err)
	}

	loaded, err := db.GetGif(context.Background(), gif.ID)
	if err != nil {
		t.Fatalf("GetGif failed: %v", err)
	}
	found := false
	for _, name := range loaded.Tags {
		if name == "party" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected normalized tag party on gif, got %v", loaded.Tags)
	}
}

func TestAddTagToGifIdempotent(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	// Re-adding an existing tag must not inflate the usage counter.
	if err := db.AddTagToGif(context.Background(), gif.ID, account.ID, "cat"); err != nil {
		t.Fatalf("AddTagToGif failed: %v", err)
	}

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	for _, tag := range tags {
		if tag.Name == "cat" && tag.UsageCount != 1 {
			t.Errorf("cat usage = %d, want 1", tag.UsageCount)
		}
	}
}

func TestAddTagToGifNotFound(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	if err := db.AddTagToGif(context.Background(), 9999, account.ID, "cat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveTagFromGif(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	if err := db.RemoveTagFromGif(context.Background(), gif.ID, "Cat"); err != nil {
		t.Fatalf("RemoveTagFromGif failed: %v", err)
	}

	loaded, err := db.GetGif(context.Background(), gif.ID)
	if err != nil {
		t.Fatalf("GetGif failed: %v", err)
	}
	if len(loaded.Tags) != 2 {
		t.Errorf("expected 2 tags after removal, got %v", loaded.Tags)
	}

	// The tag row survives at zero usage.
	unused, err := db.ListUnusedTags(context.Background())
	if err != nil {
		t.Fatalf("ListUnusedTags failed: %v", err)
	}
	if len(unused) != 1 || unused[0].Name != "cat" {
		t.Errorf("expected cat in unused tags, got %v", unused)
	}

	// Removing again is a no-op, counter stays at zero.
	if err := db.RemoveTagFromGif(context.Background(), gif.ID, "cat"); err != nil {
		t.Fatalf("second RemoveTagFromGif failed: %v", err)
	}
	unused, err = db.ListUnusedTags(context.Background())
	if err != nil {
		t.Fatalf("ListUnusedTags failed: %v", err)
	}
	if len(unused) != 1 || unused[0].UsageCount != 0 {
		t.Errorf("expected cat usage to stay 0, got %v", unused)
	}
}

func TestListTagsOrdering(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "two.gif", []string{"cat", "sleep", "fun"})
	createTestGif(t, db, account.ID, "three.gif", []string{"cat", "cozy", "calm"})

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) == 0 || tags[0].Name != "cat" {
		t.Fatalf("expected cat (usage 3) first, got %v", tags)
	}
	for i := 1; i < len(tags); i++ {
		if tags[i].UsageCount > tags[i-1].UsageCount {
			t.Errorf("tags not sorted by usage: %q (%d) after %q (%d)",
				tags[i].Name, tags[i].UsageCount, tags[i-1].Name, tags[i-1].UsageCount)
		}
	}
}

func TestTagNamesCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})

	// "CAT" normalizes to the existing "cat" row rather than a new one.
	if err := db.AddTagToGif(context.Background(), gif.ID, account.ID, "CAT"); err != nil {
		t.Fatalf("AddTagToGif failed: %v", err)
	}

	count, err := db.GetTagCount(context.Background())
	if err != nil {
		t.Fatalf("GetTagCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("tag count = %d, want 3", count)
	}
}
