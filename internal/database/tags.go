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

// resolveTagTx finds or creates the tag row for name and bumps its
// usage counter, returning the tag id. The caller is expected to insert
// a fresh association row for the returned id in the same transaction;
// on conflict the counter increment keeps the invariant that
// usage_count equals the number of gif_tags rows.
func resolveTagTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO tags (name, usage_count) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET usage_count = usage_count + 1
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddTagToGif associates an existing gif with a tag, creating the tag
// if needed. Adding an already-present tag is a no-op and leaves the
// usage counter untouched.
func (d *Database) AddTagToGif(ctx context.Context, gifID, accountID int64, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("tag name is empty")
	}

	done := observeQuery("add_tag_to_gif")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM gifs WHERE id = ?", gifID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to check gif: %w", err)
		}

		// Upsert without touching the counter; the increment happens
		// only if a new association row actually lands.
		var tagID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (name, usage_count) VALUES (?, 0)
			ON CONFLICT(name) DO UPDATE SET name = name
			RETURNING id
		`, name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to resolve tag: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO gif_tags (gif_id, tag_id, added_by) VALUES (?, ?, ?)
		`, gifID, tagID, accountID)
		if err != nil {
			return fmt.Errorf("failed to associate tag: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 1 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?", tagID); err != nil {
				return fmt.Errorf("failed to bump tag usage: %w", err)
			}
		}
		return nil
	})

	done(err)
	return err
}

// RemoveTagFromGif drops one tag association and decrements the usage
// counter. Removing a tag the gif never had is a no-op; the tag row
// itself always survives, even at zero usage.
func (d *Database) RemoveTagFromGif(ctx context.Context, gifID int64, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))

	done := observeQuery("remove_tag_from_gif")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM gif_tags
			WHERE gif_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)
		`, gifID, name)
		if err != nil {
			return fmt.Errorf("failed to remove tag association: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 1 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE tags SET usage_count = usage_count - 1 WHERE name = ?", name); err != nil {
				return fmt.Errorf("failed to decrement tag usage: %w", err)
			}
		}
		return nil
	})

	done(err)
	return err
}

// ListTags returns all tags ordered by usage descending, then name.
func (d *Database) ListTags(ctx context.Context) ([]Tag, error) {
	done := observeQuery("list_tags")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, usage_count, created_at
		FROM tags
		ORDER BY usage_count DESC, name ASC
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	tags, err := collectTags(rows)
	done(err)
	return tags, err
}

// ListUnusedTags returns tags whose usage counter is zero. Vocabulary
// rows are never pruned automatically, so this is the maintenance view
// for operators deciding what to clean up.
func (d *Database) ListUnusedTags(ctx context.Context) ([]Tag, error) {
	done := observeQuery("list_unused_tags")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, usage_count, created_at
		FROM tags
		WHERE usage_count = 0
		ORDER BY name ASC
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list unused tags: %w", err)
	}

	tags, err := collectTags(rows)
	done(err)
	return tags, err
}

// GetTagCount returns the size of the tag vocabulary.
func (d *Database) GetTagCount(ctx context.Context) (int, error) {
	done := observeQuery("get_tag_count")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&count)
	done(err)
	if err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return count, nil
}

func collectTags(rows *sql.Rows) ([]Tag, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var createdAt int64
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.UsageCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tag.CreatedAt = time.Unix(createdAt, 0)
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// getGifTagsUnlocked returns the tag names on a gif, sorted. Caller
// must hold at least a read lock.
func (d *Database) getGifTagsUnlocked(ctx context.Context, gifID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name
		FROM gif_tags gt
		INNER JOIN tags t ON t.id = gt.tag_id
		WHERE gt.gif_id = ?
		ORDER BY t.name ASC
	`, gifID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gif tags: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
