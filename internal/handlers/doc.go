// Package handlers implements the HTTP API: uploads, browsing, search,
// favorites, tags, accounts, and service health.
package handlers
