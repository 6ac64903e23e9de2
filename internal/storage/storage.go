package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"gif-share/internal/logging"
)

const (
	gifSubdir     = "gifs"
	previewSubdir = "previews"
)

// Store lays uploaded gifs and their previews out under a single root:
//
//	<root>/gifs/<uuid>.gif
//	<root>/previews/<uuid>.png
//
// Database rows hold paths relative to the root so the root can move
// between deployments.
type Store struct {
	root string
}

// New prepares the storage root, creating the subdirectories if needed.
func New(root string) (*Store, error) {
	for _, sub := range []string{gifSubdir, previewSubdir} {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the absolute storage root, for static file serving.
func (s *Store) Root() string {
	return s.root
}

// SaveGif streams the upload to a freshly named file under gifs/ and
// returns the root-relative path. The upload's original filename never
// reaches the filesystem.
func (s *Store) SaveGif(r io.Reader) (string, error) {
	relPath := filepath.Join(gifSubdir, uuid.NewString()+".gif")
	absPath := filepath.Join(s.root, relPath)

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", absPath, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write %s: %w", absPath, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to close %s: %w", absPath, err)
	}

	return relPath, nil
}

// PreviewPathFor returns the root-relative preview path paired with a
// stored gif path. Derivation is deterministic so callers never need to
// record the mapping separately.
func (s *Store) PreviewPathFor(gifPath string) string {
	base := filepath.Base(gifPath)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(previewSubdir, name+".png")
}

// Abs resolves a root-relative stored path to an absolute one.
func (s *Store) Abs(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// Remove deletes stored artifacts best-effort. Failures are logged and
// swallowed; a leaked file must never fail the database operation that
// already committed.
func (s *Store) Remove(relPaths ...string) {
	for _, relPath := range relPaths {
		if relPath == "" {
			continue
		}
		absPath := filepath.Join(s.root, relPath)
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove stored file %s: %v", absPath, err)
		}
	}
}
