// Package storage owns the on-disk layout of uploaded gifs and their
// derived previews.
package storage
