package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gif-share/internal/database"
	"gif-share/internal/ingest"
	"gif-share/internal/logging"
	"gif-share/internal/media"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode JSON error response: %v", err)
	}
}

// writeDomainError maps domain errors to HTTP responses. Anything
// unrecognized becomes a 500 with a generic message so internals never
// leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	var perr *media.ProcessingError

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "not found", http.StatusNotFound)
	case errors.Is(err, database.ErrForbidden):
		writeJSONError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, database.ErrDuplicate):
		writeJSONError(w, "already exists", http.StatusConflict)
	case errors.Is(err, ingest.ErrTooFewTags):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ingest.ErrNotAGif):
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &perr):
		writeJSONError(w, "could not process media", http.StatusUnprocessableEntity)
	default:
		logging.Error("request failed: %v", err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// pathID extracts the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
