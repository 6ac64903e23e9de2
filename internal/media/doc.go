// Package media inspects uploaded images and derives still preview
// frames from animated gifs.
package media
