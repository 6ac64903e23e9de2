package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gif-share/internal/database"
	"gif-share/internal/logging"
	"gif-share/internal/media"
	"gif-share/internal/metrics"
	"gif-share/internal/storage"
)

var (
	// ErrTooFewTags rejects an upload whose tag list normalizes to
	// fewer distinct tags than the configured minimum.
	ErrTooFewTags = errors.New("too few distinct tags")

	// ErrNotAGif rejects an upload whose content is not gif data,
	// whatever its filename claims.
	ErrNotAGif = errors.New("uploaded file is not a gif")
)

// ParseTags normalizes a raw comma-separated tag string: split, trim,
// lowercase, drop empties, deduplicate. The result is sorted for
// deterministic storage order. Returns ErrTooFewTags when fewer than
// minTags distinct names survive.
func ParseTags(raw string, minTags int) ([]string, error) {
	seen := make(map[string]bool)
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}

	if len(tags) < minTags {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewTags, len(tags), minTags)
	}

	sort.Strings(tags)
	return tags, nil
}

// Pipeline runs the upload flow: validate tags, persist the file,
// inspect it, derive the preview, then commit the metadata in one
// transaction. Any failure after the file lands removes every artifact
// written so far.
type Pipeline struct {
	db        *database.Database
	store     *storage.Store
	processor *media.Processor
	minTags   int
}

// NewPipeline wires the upload flow together.
func NewPipeline(db *database.Database, store *storage.Store, processor *media.Processor, minTags int) *Pipeline {
	return &Pipeline{
		db:        db,
		store:     store,
		processor: processor,
		minTags:   minTags,
	}
}

// Ingest accepts one upload and returns the stored gif. The tag list is
// validated before any byte touches disk, so tag rejections are free.
func (p *Pipeline) Ingest(ctx context.Context, accountID int64, src io.Reader, originalName, rawTags string) (*database.Gif, error) {
	start := time.Now()

	tags, err := ParseTags(rawTags, p.minTags)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("rejected_tags").Inc()
		return nil, err
	}

	gifPath, err := p.store.SaveGif(src)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	meta, err := p.processor.Inspect(p.store.Abs(gifPath))
	if err != nil {
		p.store.Remove(gifPath)
		metrics.IngestTotal.WithLabelValues("rejected_media").Inc()
		return nil, err
	}
	if meta.Format != "gif" {
		p.store.Remove(gifPath)
		metrics.IngestTotal.WithLabelValues("rejected_media").Inc()
		return nil, fmt.Errorf("%w: decoded as %s", ErrNotAGif, meta.Format)
	}

	previewPath := p.store.PreviewPathFor(gifPath)
	if err := p.processor.DerivePreview(p.store.Abs(gifPath), p.store.Abs(previewPath)); err != nil {
		p.store.Remove(gifPath)
		metrics.IngestTotal.WithLabelValues("rejected_media").Inc()
		return nil, err
	}

	size := fileSize(p.store.Abs(gifPath))

	gif, err := p.db.CreateGifWithTags(ctx, database.NewGif{
		UploaderID:  accountID,
		Filename:    sanitizeFilename(originalName),
		StoragePath: gifPath,
		PreviewPath: previewPath,
		FileSize:    size,
		Width:       meta.Width,
		Height:      meta.Height,
	}, tags)
	if err != nil {
		// The transaction rolled back, so the files are orphans.
		p.store.Remove(gifPath, previewPath)
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	recordAccepted(start, len(tags), size)
	logging.Info("Ingested gif %d (%s, %dx%d, %d bytes, %d tags) for account %d",
		gif.ID, gif.Filename, gif.Width, gif.Height, size, len(tags), accountID)

	return gif, nil
}

func recordAccepted(start time.Time, tagCount int, size int64) {
	metrics.IngestTotal.WithLabelValues("accepted").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	metrics.IngestTagsPerUpload.Observe(float64(tagCount))
	metrics.IngestBytesTotal.Add(float64(size))
}

// fileSize returns the stored size, or zero when stat fails. A failed
// stat is logged but does not abort an otherwise healthy upload.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		logging.Warn("Failed to stat %s: %v", path, err)
		return 0
	}
	return info.Size()
}

// sanitizeFilename reduces the client-supplied name to its final path
// element and caps its length. The value is display metadata only; the
// stored file never uses it.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload.gif"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
