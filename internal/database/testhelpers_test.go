package database

import (
	"context"
	"path/filepath"
	"testing"
)

// setupTestDB creates a throwaway database in a temp directory. The
// connection is closed automatically when the test finishes.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

// createTestAccount registers an account and returns it.
func createTestAccount(t *testing.T, db *Database, username string) *Account {
	t.Helper()

	account, err := db.CreateAccount(context.Background(), username, "correct-horse-battery")
	if err != nil {
		t.Fatalf("failed to create account %q: %v", username, err)
	}
	return account
}

// createTestGif inserts a gif with the given tags and returns it.
func createTestGif(t *testing.T, db *Database, uploaderID int64, filename string, tags []string) *Gif {
	t.Helper()

	gif, err := db.CreateGifWithTags(context.Background(), NewGif{
		UploaderID:  uploaderID,
		Filename:    filename,
		StoragePath: "gifs/" + filename,
		PreviewPath: "previews/" + filename + ".png",
		FileSize:    1024,
		Width:       320,
		Height:      240,
	}, tags)
	if err != nil {
		t.Fatalf("failed to create gif %q: %v", filename, err)
	}
	return gif
}
