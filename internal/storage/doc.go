// Package storage persists tasktimerd's run history.
//
// The primary backend is SQLite (modernc.org/sqlite, cgo-free). When
// history is disabled in the config a no-op store is returned so callers
// never branch on a nil store.
package storage
