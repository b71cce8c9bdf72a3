package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/keyquest/internal/storage"
)

// Table is an in-memory implementation of the remote table
type Table struct {
	mu sync.RWMutex

	order []storage.Locator
	rows  map[storage.Locator]map[storage.Column]string
}

// New creates a new in-memory table
func New() *Table {
	return &Table{
		rows: make(map[storage.Locator]map[storage.Column]string),
	}
}

// Ensure Table implements the interface
var _ storage.Table = (*Table)(nil)

func (t *Table) Scan(ctx context.Context) ([]storage.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]storage.Row, 0, len(t.order))
	for _, loc := range t.order {
		rows = append(rows, storage.Row{Locator: loc, Values: maps.Clone(t.rows[loc])})
	}
	return rows, nil
}

func (t *Table) Get(ctx context.Context, loc storage.Locator) (storage.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	values, ok := t.rows[loc]
	if !ok {
		return storage.Row{}, storage.ErrRowNotFound
	}
	return storage.Row{Locator: loc, Values: maps.Clone(values)}, nil
}

func (t *Table) Append(ctx context.Context, values map[storage.Column]string) (storage.Locator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	loc := storage.Locator("rec" + uuid.NewString())
	t.rows[loc] = maps.Clone(values)
	t.order = append(t.order, loc)
	return loc, nil
}

func (t *Table) UpdateCells(ctx context.Context, loc storage.Locator, values map[storage.Column]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[loc]
	if !ok {
		return storage.ErrRowNotFound
	}
	for col, v := range values {
		row[col] = v
	}
	return nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}
