package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RelatedGifs returns up to limit gifs that share at least one tag with
// the source gif, ordered by shared-tag count, then favorite count,
// then recency. The source gif itself never appears. A source with no
// tags yields an empty slice, not an error. Returns ErrNotFound when
// the source gif does not exist.
func (d *Database) RelatedGifs(ctx context.Context, gifID int64, limit int) ([]Gif, error) {
	done := observeQuery("related_gifs")

	if limit < 1 {
		limit = 12
	}
	if limit > 100 {
		limit = 100
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var exists int
	if err := d.db.QueryRowContext(ctx, "SELECT 1 FROM gifs WHERE id = ?", gifID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(ErrNotFound)
			return nil, ErrNotFound
		}
		done(err)
		return nil, fmt.Errorf("failed to check gif: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT g.id, g.uploader_id, a.username, g.filename, g.storage_path, g.preview_path,
		       g.file_size, g.width, g.height, g.favorite_count, g.view_count, g.uploaded_at,
		       COUNT(gt.tag_id) AS shared
		FROM gif_tags gt
		INNER JOIN gifs g ON g.id = gt.gif_id
		INNER JOIN accounts a ON a.id = g.uploader_id
		WHERE gt.tag_id IN (SELECT tag_id FROM gif_tags WHERE gif_id = ?)
		  AND gt.gif_id != ?
		GROUP BY gt.gif_id
		ORDER BY shared DESC, g.favorite_count DESC, g.uploaded_at DESC, g.id DESC
		LIMIT ?
	`, gifID, gifID, limit)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query related gifs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	items := []Gif{}
	for rows.Next() {
		var gif Gif
		var uploadedAt int64
		var shared int
		err := rows.Scan(
			&gif.ID, &gif.UploaderID, &gif.UploaderName, &gif.Filename,
			&gif.StoragePath, &gif.PreviewPath, &gif.FileSize,
			&gif.Width, &gif.Height, &gif.FavoriteCount, &gif.ViewCount,
			&uploadedAt, &shared,
		)
		if err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan related gif: %w", err)
		}
		gif.UploadedAt = time.Unix(uploadedAt, 0)
		items = append(items, gif)
	}
	if err := rows.Err(); err != nil {
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
	return items, nil
}
