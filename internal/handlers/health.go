package handlers

import (
	"net/http"
	"runtime"
	"time"

	"gif-share/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

var startTime = time.Now()

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Library summary
	TotalGifs int `json:"totalGifs"`
	TotalTags int `json:"totalTags"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The database
// is the only hard dependency; losing it degrades the status and flips
// the response to 503.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.db.GetStats()

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(startTime).Round(time.Second).String(),
		TotalGifs:    stats.TotalGifs,
		TotalTags:    stats.TotalTags,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if err := h.db.Ping(r.Context()); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, response)
		return
	}

	writeJSON(w, response)
}
