// Package identitylock serialises work per identity key within the process.
//
// The remote store has no transactions or unique constraints, so every
// read-modify-write on a user record runs while holding the lock for the
// record's normalised email. The lock is process-local: it is only correct
// while a single service instance writes to the store.
package identitylock

import (
	"context"
	"sync"
)

// entry is a one-slot semaphore shared by every caller of a key
type entry struct {
	ch   chan struct{}
	refs int
}

// Locker hands out mutual exclusion per key. Entries are dropped once no
// caller holds or waits on them, so memory is bounded by concurrent keys.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a Locker
func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

// Lock blocks until key is held or ctx is done. On success the returned
// function releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireRef(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.releaseRef(key, e)
		})
	}, nil
}

// WithLock runs fn while holding key
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// Len returns the number of keys currently held or waited on
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locker) acquireRef(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseRef(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
