package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCreateGifWithTags(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	gif := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	if gif.ID == 0 {
		t.Error("expected nonzero gif id")
	}
	if gif.UploaderName != "alice" {
		t.Errorf("uploader name = %q, want alice", gif.UploaderName)
	}
	if want := []string{"cat", "dance", "fun"}; !reflect.DeepEqual(gif.Tags, want) {
		t.Errorf("tags = %v, want %v", gif.Tags, want)
	}
	if gif.ViewCount != 0 || gif.FavoriteCount != 0 {
		t.Errorf("expected zero counters, got views=%d favorites=%d", gif.ViewCount, gif.FavoriteCount)
	}

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}
	for _, tag := range tags {
		if tag.UsageCount != 1 {
			t.Errorf("tag %q usage = %d, want 1", tag.Name, tag.UsageCount)
		}
	}
}

func TestCreateGifSharesExistingTags(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")

	createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "two.gif", []string{"cat", "sleep", "cute"})

	count, err := db.GetTagCount(context.Background())
	if err != nil {
		t.Fatalf("GetTagCount failed: %v", err)
	}
	if count != 5 {
		t.Errorf("tag count = %d, want 5", count)
	}

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	for _, tag := range tags {
		want := 1
		if tag.Name == "cat" {
			want = 2
		}
		if tag.UsageCount != want {
			t.Errorf("tag %q usage = %d, want %d", tag.Name, tag.UsageCount, want)
		}
	}
}

func TestGetGifIncrementsViewCount(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	created := createTestGif(t, db, account.ID, "dance.gif", []string{"cat", "dance", "fun"})

	first, err := db.GetGif(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetGif failed: %v", err)
	}
	if first.ViewCount != 1 {
		t.Errorf("view count after first read = %d, want 1", first.ViewCount)
	}

	second, err := db.GetGif(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetGif failed: %v", err)
	}
	if second.ViewCount != 2 {
		t.Errorf("view count after second read = %d, want 2", second.ViewCount)
	}
}

func TestGetGifNotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetGif(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListGifsRequiresAllTags(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	match := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "two.gif", []string{"cat", "sleep", "cute"})

	page, err := db.ListGifs(context.Background(), ListFilter{Tags: []string{"cat", "dance"}})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected exactly one match, got total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != match.ID {
		t.Errorf("matched gif %d, want %d", page.Items[0].ID, match.ID)
	}

	// Single shared tag matches both.
	page, err = db.ListGifs(context.Background(), ListFilter{Tags: []string{"CAT"}})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("expected 2 matches for shared tag, got %d", page.Total)
	}
}

func TestListGifsSearch(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestAccount(t, db, "alice")
	bob := createTestAccount(t, db, "bobcat")
	createTestGif(t, db, alice.ID, "one.gif", []string{"dancing", "party", "fun"})
	createTestGif(t, db, bob.ID, "two.gif", []string{"sleep", "cozy", "calm"})

	// Tag substring.
	page, err := db.ListGifs(context.Background(), ListFilter{Search: "danc"})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 1 || page.Items[0].UploaderName != "alice" {
		t.Errorf("tag search: total=%d, want 1 from alice", page.Total)
	}

	// Uploader substring.
	page, err = db.ListGifs(context.Background(), ListFilter{Search: "obca"})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 1 || page.Items[0].UploaderName != "bobcat" {
		t.Errorf("uploader search: total=%d, want 1 from bobcat", page.Total)
	}

	// No match.
	page, err = db.ListGifs(context.Background(), ListFilter{Search: "zebra"})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("expected empty result, got total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestListGifsSortPopular(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	older := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	newer := createTestGif(t, db, account.ID, "two.gif", []string{"dog", "jump", "fun"})

	if _, err := db.ToggleFavorite(context.Background(), account.ID, older.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	page, err := db.ListGifs(context.Background(), ListFilter{Sort: SortPopular})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 gifs, got %d", len(page.Items))
	}
	if page.Items[0].ID != older.ID {
		t.Errorf("popular sort put gif %d first, want favorited gif %d", page.Items[0].ID, older.ID)
	}

	page, err = db.ListGifs(context.Background(), ListFilter{Sort: SortRecent})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Items[0].ID != newer.ID {
		t.Errorf("recent sort put gif %d first, want newest gif %d", page.Items[0].ID, newer.ID)
	}
}

func TestListGifsSensitiveFiltering(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	safe := createTestGif(t, db, account.ID, "safe.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "spicy.gif", []string{"nsfw", "dance", "fun"})

	page, err := db.ListGifs(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != safe.ID {
		t.Errorf("default listing should hide sensitive gifs, got total=%d", page.Total)
	}

	page, err = db.ListGifs(context.Background(), ListFilter{IncludeSensitive: true})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("opted-in listing should include sensitive gifs, got total=%d", page.Total)
	}
}

func TestListGifsPagination(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	for _, name := range []string{"a.gif", "b.gif", "c.gif"} {
		createTestGif(t, db, account.ID, name, []string{"cat", "dance", "fun"})
	}

	page, err := db.ListGifs(context.Background(), ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("page 1: total=%d items=%d, want 3/2", page.Total, len(page.Items))
	}

	page, err = db.ListGifs(context.Background(), ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListGifs failed: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 {
		t.Errorf("page 2: total=%d items=%d, want 3/1", page.Total, len(page.Items))
	}
}

func TestDeleteGifOwnership(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestAccount(t, db, "alice")
	bob := createTestAccount(t, db, "bob")
	gif := createTestGif(t, db, alice.ID, "dance.gif", []string{"cat", "dance", "fun"})

	if _, err := db.DeleteGif(context.Background(), gif.ID, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-owner, got %v", err)
	}

	deleted, err := db.DeleteGif(context.Background(), gif.ID, alice.ID)
	if err != nil {
		t.Fatalf("DeleteGif failed: %v", err)
	}
	if deleted.StoragePath != gif.StoragePath {
		t.Errorf("deleted gif storage path = %q, want %q", deleted.StoragePath, gif.StoragePath)
	}

	if _, err := db.GetGif(context.Background(), gif.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if _, err := db.DeleteGif(context.Background(), gif.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for double delete, got %v", err)
	}
}

func TestDeleteGifReleasesTagUsage(t *testing.T) {
	db := setupTestDB(t)
	account := createTestAccount(t, db, "alice")
	gif := createTestGif(t, db, account.ID, "one.gif", []string{"cat", "dance", "fun"})
	createTestGif(t, db, account.ID, "two.gif", []string{"cat", "sleep", "cute"})

	if _, err := db.DeleteGif(context.Background(), gif.ID, account.ID); err != nil {
		t.Fatalf("DeleteGif failed: %v", err)
	}

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	usage := make(map[string]int, len(tags))
	for _, tag := range tags {
		usage[tag.Name] = tag.UsageCount
	}

	for name, want := range map[string]int{"cat": 1, "dance": 0, "fun": 0, "sleep": 1, "cute": 1} {
		if usage[name] != want {
			t.Errorf("tag %q usage = %d, want %d", name, usage[name], want)
		}
	}

	unused, err := db.ListUnusedTags(context.Background())
	if err != nil {
		t.Fatalf("ListUnusedTags failed: %v", err)
	}
	if len(unused) != 2 {
		t.Errorf("expected 2 unused tags, got %d", len(unused))
	}
}

func TestBuildGifFilterEmpty(t *testing.T) {
	where, args := buildGifFilter(ListFilter{IncludeSensitive: true})
	if where != "" {
		t.Errorf("expected empty WHERE clause, got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}
