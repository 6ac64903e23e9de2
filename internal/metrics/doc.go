// Package metrics defines the Prometheus metrics exported by the
// gif-share server. Metrics are registered via promauto at package
// initialization and served on a dedicated metrics port.
package metrics
