package storage

import (
	"context"
	"errors"
)

// Locator addresses a single row in a table. Backends choose the format;
// callers must treat it as opaque.
type Locator string

// Column names a field of a row
type Column string

// Row is one record of a table
type Row struct {
	Locator Locator
	Values  map[Column]string
}

// Get returns the value of a column, or "" if absent
func (r Row) Get(c Column) string {
	return r.Values[c]
}

// Table is the remote tabular record store. It has no indexed lookup and no
// transactions: lookups scan, writes address rows by locator.
type Table interface {
	// Scan returns every row currently in the table, in insertion order
	Scan(ctx context.Context) ([]Row, error)

	// Get fetches a single row by locator
	Get(ctx context.Context, loc Locator) (Row, error)

	// Append adds a row and returns its locator
	Append(ctx context.Context, values map[Column]string) (Locator, error)

	// UpdateCells writes the given cells of one row in a single request
	UpdateCells(ctx context.Context, loc Locator, values map[Column]string) error
}

// Operation names used in logs and metrics
const (
	OpScan   = "scan"
	OpGet    = "get"
	OpAppend = "append"
	OpUpdate = "update"
)

// Errors reported by Table implementations. Retry decisions are made on these.
var (
	ErrRowNotFound = errors.New("row not found")

	// ErrRateLimited is the store's explicit "slow down" signal
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient covers timeouts, DNS failures, dropped connections and 5xx
	ErrTransient = errors.New("transient store failure")

	ErrUnauthorized     = errors.New("store rejected credentials")
	ErrMalformedRequest = errors.New("store rejected malformed request")
)
