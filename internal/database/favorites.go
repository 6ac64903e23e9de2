package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gif-share/internal/logging"
	"gif-share/internal/metrics"
)

// FavoriteState is the outcome of a toggle: whether the gif is now
// favorited by the account, and the gif's new aggregate count.
type FavoriteState struct {
	GifID         int64 `json:"gifId"`
	Favorited     bool  `json:"favorited"`
	FavoriteCount int   `json:"favoriteCount"`
}

// ToggleFavorite flips the favorite state of (accountID, gifID) and
// adjusts the gif's counter in the same transaction. Toggling twice
// always returns to the starting state. Returns ErrNotFound when the
// gif does not exist.
func (d *Database) ToggleFavorite(ctx context.Context, accountID, gifID int64) (*FavoriteState, error) {
	done := observeQuery("toggle_favorite")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	state := &FavoriteState{GifID: gifID}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM gifs WHERE id = ?", gifID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to check gif: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			"DELETE FROM favorites WHERE account_id = ? AND gif_id = ?", accountID, gifID)
		if err != nil {
			return fmt.Errorf("failed to clear favorite: %w", err)
		}

		removed, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if removed == 1 {
			state.Favorited = false
			_, err = tx.ExecContext(ctx,
				"UPDATE gifs SET favorite_count = favorite_count - 1 WHERE id = ?", gifID)
		} else {
			state.Favorited = true
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO favorites (account_id, gif_id) VALUES (?, ?)", accountID, gifID); err != nil {
				return fmt.Errorf("failed to insert favorite: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				"UPDATE gifs SET favorite_count = favorite_count + 1 WHERE id = ?", gifID)
		}
		if err != nil {
			return fmt.Errorf("failed to adjust favorite count: %w", err)
		}

		return tx.QueryRowContext(ctx,
			"SELECT favorite_count FROM gifs WHERE id = ?", gifID).Scan(&state.FavoriteCount)
	})
	if err != nil {
		done(err)
		return nil, err
	}

	direction := "remove"
	if state.Favorited {
		direction = "add"
	}
	metrics.FavoriteTogglesTotal.WithLabelValues(direction).Inc()
	logging.Debug("Account %d toggled favorite on gif %d: favorited=%v count=%d",
		accountID, gifID, state.Favorited, state.FavoriteCount)

	done(nil)
	return state, nil
}

// CheckFavorites reports the favorite state of many gifs at once for
// one account. Every requested id appears in the result, with ids the
// account has not favorited (including nonexistent gifs) mapped to
// false.
func (d *Database) CheckFavorites(ctx context.Context, accountID int64, gifIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(gifIDs))
	for _, id := range gifIDs {
		result[id] = false
	}
	if len(gifIDs) == 0 {
		return result, nil
	}

	done := observeQuery("check_favorites")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := make([]string, len(gifIDs))
	args := make([]interface{}, 0, len(gifIDs)+1)
	args = append(args, accountID)
	for i, id := range gifIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"SELECT gif_id FROM favorites WHERE account_id = ? AND gif_id IN (%s)",
		strings.Join(placeholders, ","))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to check favorites: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return result, nil
}

// ListFavorites returns the account's favorited gifs, most recently
// favorited first.
func (d *Database) ListFavorites(ctx context.Context, accountID int64, limit, offset int) (*GifPage, error) {
	done := observeQuery("list_favorites")

	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var total int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE account_id = ?", accountID).Scan(&total); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT g.id, g.uploader_id, a.username, g.filename, g.storage_path, g.preview_path,
		       g.file_size, g.width, g.height, g.favorite_count, g.view_count, g.uploaded_at
		FROM favorites f
		INNER JOIN gifs g ON g.id = f.gif_id
		INNER JOIN accounts a ON a.id = g.uploader_id
		WHERE f.account_id = ?
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT ? OFFSET ?
	`, accountID, limit, offset)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list favorites: %w", err)
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
