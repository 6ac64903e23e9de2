// Package ingest runs the upload flow from raw bytes and a tag string
// to a committed gif row, cleaning up partial artifacts on failure.
package ingest
