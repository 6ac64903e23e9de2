package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"gif-share/internal/logging"
	"gif-share/internal/metrics"
)

const (
	bcryptCost     = 12
	sessionTTL     = 7 * 24 * time.Hour
	minPasswordLen = 8
)

// CreateAccount registers a new account. Usernames are stored as given
// but compared case-insensitively; a taken name returns ErrDuplicate.
func (d *Database) CreateAccount(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is empty")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	done := observeQuery("create_account")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO accounts (username, password_hash) VALUES (?, ?)", username, string(hash))
	if err != nil {
		done(err)
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		done(err)
		return nil, err
	}

	account, err := d.getAccountUnlocked(ctx, id)
	done(err)
	if err != nil {
		return nil, err
	}

	logging.Info("Created account %q (id %d)", username, id)
	return account, nil
}

// Authenticate verifies username and password and returns the account.
// Wrong username and wrong password both return ErrNotFound so the
// caller cannot distinguish them.
func (d *Database) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	done := observeQuery("authenticate")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, show_sensitive, created_at
		FROM accounts WHERE username = ?
	`, strings.TrimSpace(username))

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway to keep timing flat.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$12$XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"), []byte(password))
		done(ErrNotFound)
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		done(ErrNotFound)
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, ErrNotFound
	}

	done(nil)
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return account, nil
}

// GetAccount returns one account by id.
func (d *Database) GetAccount(ctx context.Context, id int64) (*Account, error) {
	done := observeQuery("get_account")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	account, err := d.getAccountUnlocked(ctx, id)
	done(err)
	return account, err
}

func (d *Database) getAccountUnlocked(ctx context.Context, id int64) (*Account, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, show_sensitive, created_at
		FROM accounts WHERE id = ?
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// SetShowSensitive updates the account's sensitive-content preference.
func (d *Database) SetShowSensitive(ctx context.Context, accountID int64, show bool) error {
	done := observeQuery("set_show_sensitive")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE accounts SET show_sensitive = ? WHERE id = ?", show, accountID)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to update preference: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(ErrNotFound)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// UpdatePassword rehashes and stores a new password for the named
// account. Used by the password reset tool.
func (d *Database) UpdatePassword(ctx context.Context, username, password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	done := observeQuery("update_password")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE accounts SET password_hash = ? WHERE username = ?", string(hash), strings.TrimSpace(username))
	if err != nil {
		done(err)
		return fmt.Errorf("failed to update password: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(ErrNotFound)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// CreateSession mints a session for the account and returns the raw
// token. Only the SHA-256 digest of the token is stored, so a stolen
// database cannot be replayed into live sessions.
func (d *Database) CreateSession(ctx context.Context, accountID int64) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := time.Now().Add(sessionTTL)

	done := observeQuery("create_session")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (account_id, token, expires_at) VALUES (?, ?, ?)",
		accountID, hashToken(token), expiresAt.Unix())
	done(err)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}

	return token, expiresAt, nil
}

// ValidateSession resolves a raw session token to its account. Expired
// or unknown tokens return ErrNotFound.
func (d *Database) ValidateSession(ctx context.Context, token string) (*Account, error) {
	done := observeQuery("validate_session")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT a.id, a.username, a.password_hash, a.show_sensitive, a.created_at
		FROM sessions s
		INNER JOIN accounts a ON a.id = s.account_id
		WHERE s.token = ? AND s.expires_at > strftime('%s', 'now')
	`, hashToken(token))

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		done(ErrNotFound)
		return nil, ErrNotFound
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	return account, nil
}

// DeleteSession removes the session for a raw token. Deleting an
// unknown token is a no-op.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	done := observeQuery("delete_session")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", hashToken(token))
	done(err)
	return err
}

// CleanExpiredSessions removes sessions past their expiry and returns
// how many were dropped. Run periodically by the server.
func (d *Database) CleanExpiredSessions(ctx context.Context) (int64, error) {
	done := observeQuery("clean_expired_sessions")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= strftime('%s', 'now')")
	done(err)
	if err != nil {
		return 0, fmt.Errorf("failed to clean sessions: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logging.Debug("Removed %d expired sessions", removed)
	}
	return removed, nil
}

func scanAccount(row rowScanner) (*Account, error) {
	var account Account
	var createdAt int64
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash,
		&account.ShowSensitive, &createdAt)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = time.Unix(createdAt, 0)
	return &account, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
