// Package database provides SQLite-backed persistence for accounts,
// gifs, tags, favorites, and sessions.
//
// All multi-row mutations run inside transactions so the denormalized
// counters (tags.usage_count, gifs.favorite_count) always agree with
// the relation tables they summarize. Connections run in WAL mode with
// foreign keys enabled; deleting a gif cascades to its tag associations
// and favorites.
package database
