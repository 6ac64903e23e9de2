package handlers

import (
	"encoding/json"
	"net/http"
)

// CheckFavoritesRequest asks for the favorite state of many gifs at
// once, so gallery views need a single round trip.
type CheckFavoritesRequest struct {
	GifIDs []int64 `json:"gifIds"`
}

// ToggleFavorite flips the caller's favorite on a gif.
func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	state, err := h.db.ToggleFavorite(ctx, account.ID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, state)
}

// ListFavorites returns the caller's favorites, newest first.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	page, err := h.db.ListFavorites(ctx, account.ID,
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, page)
}

// CheckFavorites reports favorite state for a batch of gif ids. Every
// requested id appears in the response, unfavorited ones as false.
func (h *Handlers) CheckFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	var req CheckFavoritesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.GifIDs) > 500 {
		writeJSONError(w, "too many gif ids", http.StatusBadRequest)
		return
	}

	states, err := h.db.CheckFavorites(ctx, account.ID, req.GifIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"favorites": states})
}
