package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gif-share/internal/logging"
)

// sensitiveTags mark a gif as sensitive content. Gifs carrying any of
// these are excluded from listings unless the filter opts in.
var sensitiveTags = []string{"nsfw"}

// NewGif holds the fields of a gif row to be created by ingestion.
type NewGif struct {
	UploaderID  int64
	Filename    string
	StoragePath string
	PreviewPath string
	FileSize    int64
	Width       int
	Height      int
}

// CreateGifWithTags inserts the gif row, resolves every tag (creating
// missing ones and incrementing usage counters), and inserts the
// association rows, all inside one transaction. Either everything
// commits or nothing does. tagNames must already be normalized
// (trimmed, lowercased, deduplicated) by the caller.
// Returns the fully hydrated gif on success.
func (d *Database) CreateGifWithTags(ctx context.Context, gif NewGif, tagNames []string) (*Gif, error) {
	done := observeQuery("create_gif_with_tags")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var gifID int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO gifs (uploader_id, filename, storage_path, preview_path, file_size, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, gif.UploaderID, gif.Filename, gif.StoragePath, gif.PreviewPath, gif.FileSize, gif.Width, gif.Height)
		if err != nil {
			return fmt.Errorf("failed to insert gif: %w", err)
		}

		gifID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get gif id: %w", err)
		}

		for _, name := range tagNames {
			tagID, err := resolveTagTx(ctx, tx, name)
			if err != nil {
				return fmt.Errorf("failed to resolve tag %q: %w", name, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO gif_tags (gif_id, tag_id, added_by) VALUES (?, ?, ?)
			`, gifID, tagID, gif.UploaderID)
			if err != nil {
				return fmt.Errorf("failed to associate tag %q: %w", name, err)
			}
		}

		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}

	hydrated, err := d.getGifUnlocked(ctx, gifID)
	done(err)
	return hydrated, err
}

// ListGifs returns one page of gifs matching the filter plus the total
// count under the same filter.
func (d *Database) ListGifs(ctx context.Context, filter ListFilter) (*GifPage, error) {
	done := observeQuery("list_gifs")

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	where, args := buildGifFilter(filter)

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM gifs g
		INNER JOIN accounts a ON a.id = g.uploader_id
	` + where
	if err := d.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to count gifs: %w", err)
	}

	orderBy := " ORDER BY g.uploaded_at DESC, g.id DESC"
	if filter.Sort == SortPopular {
		orderBy = " ORDER BY g.favorite_count DESC, g.uploaded_at DESC, g.id DESC"
	}

	query := `
		SELECT g.id, g.uploader_id, a.username, g.filename, g.storage_path, g.preview_path,
		       g.file_size, g.width, g.height, g.favorite_count, g.view_count, g.uploaded_at
		FROM gifs g
		INNER JOIN accounts a ON a.id = g.uploader_id
	` + where + orderBy + " LIMIT ? OFFSET ?"

	rows, err := d.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list gifs: %w", err)
	}

	items, err := collectGifs(rows)
	if err != nil {
		done(err)
		return nil, err
	}

	for i := range items {
		tags, err := d.getGifTagsUnlocked(ctx, items[i].ID)
		if err != nil {
			done(err)
			return nil, err
		}
		items[i].Tags = tags
	}

	done(nil)
	return &GifPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// buildGifFilter renders the WHERE clause for ListGifs. Kept separate
// so the query construction is testable without a database.
func buildGifFilter(filter ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if len(filter.Tags) > 0 {
		placeholders := make([]string, len(filter.Tags))
		for i, tag := range filter.Tags {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(strings.TrimSpace(tag)))
		}
		// The gif must carry every requested tag, so the count of
		// matching associations must equal the number of distinct
		// requested names.
		clauses = append(clauses, fmt.Sprintf(`(
			SELECT COUNT(DISTINCT t.id)
			FROM gif_tags gt
			INNER JOIN tags t ON t.id = gt.tag_id
			WHERE gt.gif_id = g.id AND t.name IN (%s)
		) = ?`, strings.Join(placeholders, ",")))
		args = append(args, len(filter.Tags))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		clauses = append(clauses, `(
			EXISTS (
				SELECT 1 FROM gif_tags gt2
				INNER JOIN tags t2 ON t2.id = gt2.tag_id
				WHERE gt2.gif_id = g.id AND t2.name LIKE ?
			) OR a.username LIKE ?
		)`)
		args = append(args, pattern, pattern)
	}

	if !filter.IncludeSensitive {
		placeholders := make([]string, len(sensitiveTags))
		for i, tag := range sensitiveTags {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		clauses = append(clauses, fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM gif_tags gts
			INNER JOIN tags ts ON ts.id = gts.tag_id
			WHERE gts.gif_id = g.id AND ts.name IN (%s)
		)`, strings.Join(placeholders, ",")))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// GetGif returns a single gif by id. A successful read increments the
// view counter as an observable side effect.
func (d *Database) GetGif(ctx context.Context, id int64) (*Gif, error) {
	done := observeQuery("get_gif")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Single-statement increment doubles as the existence check.
	result, err := d.db.ExecContext(ctx,
		"UPDATE gifs SET view_count = view_count + 1 WHERE id = ?", id)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to increment view count: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(ErrNotFound)
		return nil, ErrNotFound
	}

	gif, err := d.getGifUnlocked(ctx, id)
	done(err)
	return gif, err
}

// DeleteGif removes the gif row and, via cascades, its associations and
// favorite entries. Tag usage counters are decremented in the same
// transaction so they keep matching the surviving association rows.
// Returns the deleted gif so the caller can release the stored
// artifacts. Fails with ErrForbidden unless accountID uploaded the gif.
func (d *Database) DeleteGif(ctx context.Context, id, accountID int64) (*Gif, error) {
	done := observeQuery("delete_gif")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var gif *Gif
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT g.id, g.uploader_id, a.username, g.filename, g.storage_path, g.preview_path,
			       g.file_size, g.width, g.height, g.favorite_count, g.view_count, g.uploaded_at
			FROM gifs g
			INNER JOIN accounts a ON a.id = g.uploader_id
			WHERE g.id = ?
		`, id)

		var err error
		gif, err = scanGif(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load gif: %w", err)
		}

		if gif.UploaderID != accountID {
			return ErrForbidden
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE tags SET usage_count = usage_count - 1
			WHERE id IN (SELECT tag_id FROM gif_tags WHERE gif_id = ?)
		`, id)
		if err != nil {
			return fmt.Errorf("failed to release tag usage: %w", err)
		}

		// Cascades remove gif_tags and favorites rows.
		_, err = tx.ExecContext(ctx, "DELETE FROM gifs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete gif: %w", err)
		}

		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}

	logging.Info("Deleted gif %d (%s)", id, gif.Filename)
	done(nil)
	return gif, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGif(row rowScanner) (*Gif, error) {
	var gif Gif
	var uploadedAt int64

	err := row.Scan(
		&gif.ID, &gif.UploaderID, &gif.UploaderName, &gif.Filename,
		&gif.StoragePath, &gif.PreviewPath, &gif.FileSize,
		&gif.Width, &gif.Height, &gif.FavoriteCount, &gif.ViewCount,
		&uploadedAt,
	)
	if err != nil {
		return nil, err
	}

	gif.UploadedAt = time.Unix(uploadedAt, 0)
	return &gif, nil
}

// collectGifs drains rows into a slice, closing them when done.
func collectGifs(rows *sql.Rows) ([]Gif, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var items []Gif
	for rows.Next() {
		gif, err := scanGif(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gif: %w", err)
		}
		items = append(items, *gif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// getGifUnlocked loads one hydrated gif without touching the view
// counter. Caller must hold at least a read lock.
func (d *Database) getGifUnlocked(ctx context.Context, id int64) (*Gif, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT g.id, g.uploader_id, a.username, g.filename, g.storage_path, g.preview_path,
		       g.file_size, g.width, g.height, g.favorite_count, g.view_count, g.uploaded_at
		FROM gifs g
		INNER JOIN accounts a ON a.id = g.uploader_id
		WHERE g.id = ?
	`, id)

	gif, err := scanGif(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gif: %w", err)
	}

	gif.Tags, err = d.getGifTagsUnlocked(ctx, id)
	if err != nil {
		return nil, err
	}

	return gif, nil
}
