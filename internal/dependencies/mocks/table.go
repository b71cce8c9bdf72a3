package mocks

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/mcoot/keyquest/internal/storage"
)

// CellUpdate is one recorded UpdateCells call
type CellUpdate struct {
	Locator storage.Locator
	Values  map[storage.Column]string
}

// MockTable wraps a real Table, counting calls and injecting queued failures
type MockTable struct {
	mu       sync.Mutex
	inner    storage.Table
	calls    map[string]int
	updates  []CellUpdate
	failures map[string][]error

	// Delay is slept before every call to widen race windows
	Delay time.Duration
}

// Ensure MockTable implements storage.Table
var _ storage.Table = (*MockTable)(nil)

// NewMockTable wraps inner
func NewMockTable(inner storage.Table) *MockTable {
	return &MockTable{
		inner:    inner,
		calls:    make(map[string]int),
		failures: make(map[string][]error),
	}
}

// Fail queues errors returned by the next calls of op (storage.OpScan etc.), in order.
// A nil entry lets that call through.
func (t *MockTable) Fail(op string, errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[op] = append(t.failures[op], errs...)
}

// Calls returns how many times op was invoked, including failed calls
func (t *MockTable) Calls(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// Updates returns every successful UpdateCells call
func (t *MockTable) Updates() []CellUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CellUpdate, len(t.updates))
	copy(out, t.updates)
	return out
}

// UpdatesTo counts successful updates that wrote col
func (t *MockTable) UpdatesTo(col storage.Column) int {
	n := 0
	for _, u := range t.Updates() {
		if _, ok := u.Values[col]; ok {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and queued failures
func (t *MockTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = make(map[string]int)
	t.failures = make(map[string][]error)
	t.updates = nil
}

func (t *MockTable) begin(op string) error {
	if t.Delay > 0 {
		time.Sleep(t.Delay)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[op]++
	if q := t.failures[op]; len(q) > 0 {
		t.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (t *MockTable) Scan(ctx context.Context) ([]storage.Row, error) {
	if err := t.begin(storage.OpScan); err != nil {
		return nil, err
	}
	return t.inner.Scan(ctx)
}

func (t *MockTable) Get(ctx context.Context, loc storage.Locator) (storage.Row, error) {
	if err := t.begin(storage.OpGet); err != nil {
		return storage.Row{}, err
	}
	return t.inner.Get(ctx, loc)
}

func (t *MockTable) Append(ctx context.Context, values map[storage.Column]string) (storage.Locator, error) {
	if err := t.begin(storage.OpAppend); err != nil {
		return "", err
	}
	return t.inner.Append(ctx, values)
}

func (t *MockTable) UpdateCells(ctx context.Context, loc storage.Locator, values map[storage.Column]string) error {
	if err := t.begin(storage.OpUpdate); err != nil {
		return err
	}
	if err := t.inner.UpdateCells(ctx, loc, values); err != nil {
		return err
	}
	t.mu.Lock()
	t.updates = append(t.updates, CellUpdate{Locator: loc, Values: maps.Clone(values)})
	t.mu.Unlock()
	return nil
}
