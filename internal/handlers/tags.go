package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// AddTagRequest names the tag to attach to a gif.
type AddTagRequest struct {
	Name string `json:"name"`
}

// ListTags returns the whole tag vocabulary, most used first.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tags": tags})
}

// ListUnusedTags returns vocabulary entries with zero usage, for
// operators reviewing stale tags.
func (h *Handlers) ListUnusedTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListUnusedTags(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tags": tags})
}

// AddTag attaches a tag to an existing gif.
func (h *Handlers) AddTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	var req AddTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeJSONError(w, "tag name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.AddTagToGif(ctx, id, account.ID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"added": true})
}

// RemoveTag detaches a tag from a gif. The vocabulary entry survives.
func (h *Handlers) RemoveTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	if err := h.db.RemoveTagFromGif(ctx, id, mux.Vars(r)["tag"]); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"removed": true})
}
