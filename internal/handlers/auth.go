package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gif-share/internal/database"
	"gif-share/internal/logging"
)

// SessionCookieName is the name of the session cookie
const SessionCookieName = "gif_share_session"

type contextKey string

const accountContextKey contextKey = "account"

// CredentialsRequest carries a username and password for register and
// login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SettingsRequest updates account preferences.
type SettingsRequest struct {
	ShowSensitive bool `json:"showSensitive"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Username  string `json:"username,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// accountFrom returns the authenticated account stored in the request
// context, or nil for anonymous requests.
func accountFrom(ctx context.Context) *database.Account {
	account, _ := ctx.Value(accountContextKey).(*database.Account)
	return account
}

// Register creates a new account and logs it in immediately.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSONError(w, "username and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) > 72 {
		writeJSONError(w, "password must not exceed 72 characters", http.StatusBadRequest)
		return
	}

	account, err := h.db.CreateAccount(ctx, req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expiresIn, err := h.startSession(ctx, w, account.ID)
	if err != nil {
		logging.Error("Failed to create session after register: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, AuthResponse{
		Success:   true,
		Username:  account.Username,
		ExpiresIn: expiresIn,
	})
}

// Login authenticates with username and password.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.db.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		logging.Warn("Failed login attempt for %q", req.Username)
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	expiresIn, err := h.startSession(ctx, w, account.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	logging.Info("Account %q logged in", account.Username)
	writeJSON(w, AuthResponse{
		Success:   true,
		Username:  account.Username,
		ExpiresIn: expiresIn,
	})
}

func (h *Handlers) startSession(ctx context.Context, w http.ResponseWriter, accountID int64) (int, error) {
	token, expiresAt, err := h.db.CreateSession(ctx, accountID)
	if err != nil {
		return 0, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return int(time.Until(expiresAt).Seconds()), nil
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		// Best-effort session cleanup - don't fail logout if this errors
		if err := h.db.DeleteSession(ctx, cookie.Value); err != nil {
			logging.Error("failed to delete session during logout: %v", err)
		}
	}

	clearSessionCookie(w)
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Me returns the authenticated account.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, accountFrom(r.Context()))
}

// UpdateSettings stores account preferences.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.db.SetShowSensitive(ctx, account.ID, req.ShowSensitive); err != nil {
		writeDomainError(w, err)
		return
	}

	account.ShowSensitive = req.ShowSensitive
	writeJSON(w, account)
}

// AuthMiddleware rejects requests without a valid session and stores
// the resolved account in the request context.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := h.resolveSession(r)
		if account == nil {
			clearSessionCookie(w)
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), accountContextKey, account)))
	})
}

// OptionalAuthMiddleware resolves the session when a cookie is present
// but lets anonymous requests through.
func (h *Handlers) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if account := h.resolveSession(r); account != nil {
			r = r.WithContext(context.WithValue(r.Context(), accountContextKey, account))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) resolveSession(r *http.Request) *database.Account {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	account, err := h.db.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return account
}
