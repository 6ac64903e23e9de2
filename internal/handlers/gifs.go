package handlers

import (
	"io"
	"net/http"
	"strings"

	"gif-share/internal/database"
	"gif-share/internal/logging"
)

// gifMagic holds the two valid gif signatures. Content sniffing, not
// the filename, decides whether an upload is accepted.
var gifMagic = []string{"GIF87a", "GIF89a"}

// Upload accepts a multipart form with a "file" part and a "tags"
// field, runs it through the ingest pipeline, and returns the stored
// gif.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeJSONError(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("failed to clean multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Error("failed to close upload: %v", err)
		}
	}()

	// Cheap signature check before the pipeline does real work.
	head := make([]byte, 6)
	if _, err := io.ReadFull(file, head); err != nil {
		writeJSONError(w, "unreadable upload", http.StatusBadRequest)
		return
	}
	if !isGifSignature(head) {
		writeJSONError(w, "only gif uploads are accepted", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		writeJSONError(w, "unreadable upload", http.StatusBadRequest)
		return
	}

	gif, err := h.pipeline.Ingest(ctx, account.ID, file, header.Filename, r.FormValue("tags"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, gif)
}

func isGifSignature(head []byte) bool {
	for _, magic := range gifMagic {
		if strings.HasPrefix(string(head), magic) {
			return true
		}
	}
	return false
}

// ListGifs returns a filtered, sorted page of gifs.
//
// Query parameters: tags (comma-separated, all must match), search
// (tag or uploader substring), sort (recent|popular), limit, offset.
func (h *Handlers) ListGifs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := database.ListFilter{
		Search: query.Get("search"),
		Sort:   database.SortRecent,
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if query.Get("sort") == string(database.SortPopular) {
		filter.Sort = database.SortPopular
	}
	if raw := strings.TrimSpace(query.Get("tags")); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	if account := accountFrom(ctx); account != nil {
		filter.IncludeSensitive = account.ShowSensitive
	}

	page, err := h.db.ListGifs(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, page)
}

// GetGif returns a single gif and counts the view.
func (h *Handlers) GetGif(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	gif, err := h.db.GetGif(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, gif)
}

// DeleteGif removes a gif owned by the caller, then its files.
func (h *Handlers) DeleteGif(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)

	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	gif, err := h.db.DeleteGif(ctx, id, account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Row is gone; file removal is best-effort.
	h.store.Remove(gif.StoragePath, gif.PreviewPath)

	writeJSON(w, map[string]bool{"deleted": true})
}

// RelatedGifs returns gifs sharing tags with the given one.
func (h *Handlers) RelatedGifs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, "invalid gif id", http.StatusBadRequest)
		return
	}

	related, err := h.db.RelatedGifs(r.Context(), id, queryInt(r, "limit", 12))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"related": related})
}
