package identitylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerialisesSameKey(t *testing.T) {
	l := New()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "a@x.com", func(ctx context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.Len())
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b@x.com")
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, l.Len())
}

func TestLockHonoursContext(t *testing.T) {
	l := New()

	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, l.Len())

	// Key is free again
	unlock, err = l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	unlock()
}

func TestUnlockIsIdempotent(t *testing.T) {
	l := New()

	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	unlock()
	unlock()

	assert.Equal(t, 0, l.Len())
}

func TestWithLockReturnsFnError(t *testing.T) {
	l := New()
	want := assert.AnError

	err := l.WithLock(context.Background(), "a@x.com", func(ctx context.Context) error {
		return want
	})

	assert.ErrorIs(t, err, want)
	assert.Equal(t, 0, l.Len())
}
