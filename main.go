package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gif-share/internal/database"
	"gif-share/internal/handlers"
	"gif-share/internal/ingest"
	"gif-share/internal/logging"
	"gif-share/internal/media"
	"gif-share/internal/metrics"
	"gif-share/internal/middleware"
	"gif-share/internal/startup"
	"gif-share/internal/storage"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error("Failed to close database: %v", err)
		}
	}()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Clean up expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := db.CleanExpiredSessions(context.Background()); err != nil {
				logging.Error("Session cleanup failed: %v", err)
			}
		}
	}()

	// Initialize storage and the upload pipeline
	store, err := storage.New(config.StorageDir)
	if err != nil {
		startup.LogFatal("Failed to initialize storage: %v", err)
	}
	processor := media.NewProcessor(config.PreviewMaxWidth)
	pipeline := ingest.NewPipeline(db, store, processor, config.MinTagCount)

	// Initialize handlers
	h := handlers.New(db, pipeline, store, config)

	// Setup router
	router := setupRouter(h, store)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogArtifacts = config.LogArtifacts
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware and start the metrics side
	var collector *metrics.Collector
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

		buildInfo := startup.GetBuildInfo()
		metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

		collector = metrics.NewCollector(db, 30*time.Second)
		collector.Start()

		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+config.MetricsPort, metricsMux); err != nil {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, collector)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, store *storage.Store) *mux.Router {
	r := mux.NewRouter()

	h.RegisterRoutes(r)

	// Stored gifs and previews are public, immutable content.
	fileServer := http.FileServer(http.Dir(store.Root()))
	r.PathPrefix("/storage/").Handler(
		withStaticHeaders(http.StripPrefix("/storage/", fileServer)))

	return r
}

// withStaticHeaders adds caching and CORS headers for stored artifacts.
// Stored names never repeat, so long cache lifetimes are safe.
func withStaticHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		next.ServeHTTP(w, r)
	})
}

func handleShutdown(srv *http.Server, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
