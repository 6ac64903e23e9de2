package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gif-share/internal/database"
	"gif-share/internal/ingest"
	"gif-share/internal/startup"
	"gif-share/internal/storage"
)

type Handlers struct {
	db            *database.Database
	pipeline      *ingest.Pipeline
	store         *storage.Store
	maxUploadSize int64
}

func New(db *database.Database, pipeline *ingest.Pipeline, store *storage.Store, config *startup.Config) *Handlers {
	return &Handlers{
		db:            db,
		pipeline:      pipeline,
		store:         store,
		maxUploadSize: config.MaxUploadSize,
	}
}

// RegisterRoutes attaches every API route to the router. Routes under
// the authenticated subrouter require a valid session; the public ones
// populate the account from the session cookie when present but never
// reject.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)

	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	public := api.NewRoute().Subrouter()
	public.Use(h.OptionalAuthMiddleware)
	public.HandleFunc("/gifs", h.ListGifs).Methods(http.MethodGet)
	public.HandleFunc("/gifs/{id:[0-9]+}", h.GetGif).Methods(http.MethodGet)
	public.HandleFunc("/gifs/{id:[0-9]+}/related", h.RelatedGifs).Methods(http.MethodGet)
	public.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.AuthMiddleware)
	authed.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	authed.HandleFunc("/auth/settings", h.UpdateSettings).Methods(http.MethodPut)
	authed.HandleFunc("/gifs", h.Upload).Methods(http.MethodPost)
	authed.HandleFunc("/gifs/{id:[0-9]+}", h.DeleteGif).Methods(http.MethodDelete)
	authed.HandleFunc("/gifs/{id:[0-9]+}/favorite", h.ToggleFavorite).Methods(http.MethodPost)
	authed.HandleFunc("/gifs/{id:[0-9]+}/tags", h.AddTag).Methods(http.MethodPost)
	authed.HandleFunc("/gifs/{id:[0-9]+}/tags/{tag}", h.RemoveTag).Methods(http.MethodDelete)
	authed.HandleFunc("/favorites", h.ListFavorites).Methods(http.MethodGet)
	authed.HandleFunc("/favorites/check", h.CheckFavorites).Methods(http.MethodPost)
	authed.HandleFunc("/tags/unused", h.ListUnusedTags).Methods(http.MethodGet)
}
