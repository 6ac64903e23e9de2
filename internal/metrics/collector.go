package metrics

import (
	"time"

	"gif-share/internal/logging"
)

// StatsProvider supplies point-in-time library statistics.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current library statistics.
type Stats struct {
	TotalGifs      int
	TotalTags      int
	ActiveSessions int
	DBOpenConns    int
}

// Collector periodically refreshes gauge metrics from a StatsProvider.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect once immediately so gauges are populated before the
	// first scrape rather than after one full interval.
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	stats := c.statsProvider.GetStats()

	GifsTotal.Set(float64(stats.TotalGifs))
	TagsTotal.Set(float64(stats.TotalTags))
	ActiveSessions.Set(float64(stats.ActiveSessions))
	DBConnectionsOpen.Set(float64(stats.DBOpenConns))

	logging.Debug("metrics collected: %d gifs, %d tags, %d sessions",
		stats.TotalGifs, stats.TotalTags, stats.ActiveSessions)
}
