package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gif-share/internal/database"
	"gif-share/internal/ingest"
	"gif-share/internal/media"
)

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", database.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading gif: %w", database.ErrNotFound), http.StatusNotFound},
		{"forbidden", database.ErrForbidden, http.StatusForbidden},
		{"duplicate", database.ErrDuplicate, http.StatusConflict},
		{"too few tags", ingest.ErrTooFewTags, http.StatusBadRequest},
		{"not a gif", ingest.ErrNotAGif, http.StatusUnprocessableEntity},
		{"processing", &media.ProcessingError{Path: "x.gif", Err: errors.New("bad frame")}, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q, want application/json", ct)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/gifs?limit=25&bad=abc", nil)

	if got := queryInt(req, "limit", 50); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := queryInt(req, "missing", 50); got != 50 {
		t.Errorf("missing = %d, want default 50", got)
	}
	if got := queryInt(req, "bad", 7); got != 7 {
		t.Errorf("bad = %d, want default 7", got)
	}
}

func TestIsGifSignature(t *testing.T) {
	if !isGifSignature([]byte("GIF89a")) || !isGifSignature([]byte("GIF87a")) {
		t.Error("expected gif signatures to be accepted")
	}
	for _, head := range [][]byte{[]byte("GIF88a"), []byte("\x89PNG\r\n"), []byte("abcdef")} {
		if isGifSignature(head) {
			t.Errorf("expected %q to be rejected", head)
		}
	}
}
