// Package lock provides keyed locking for per-user pipeline runs and
// per-period leaderboard re-ranks.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore so acquisition can be abandoned when a
// context ends. refs counts holders and waiters; the entry is removed from
// the map when it drops to zero.
type keyMutex struct {
	sem  chan struct{}
	refs int
}

// UserLock serializes work per key. Keys are user ids, or any other
// string such as "leaderboard:weekly".
type UserLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[string]*keyMutex)}
}

// acquireRef retrieves or creates the mutex for key and registers interest.
func (ul *UserLock) acquireRef(key string) *keyMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	km, ok := ul.locks[key]
	if !ok {
		km = &keyMutex{sem: make(chan struct{}, 1)}
		ul.locks[key] = km
	}
	km.refs++
	return km
}

// releaseRef drops interest in key and forgets the mutex when unused.
func (ul *UserLock) releaseRef(key string, km *keyMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(ul.locks, key)
	}
}

// Lock acquires the lock for key, blocking until it is available.
func (ul *UserLock) Lock(key string) {
	km := ul.acquireRef(key)
	km.sem <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a key that is not held is a no-op.
func (ul *UserLock) Unlock(key string) {
	ul.mu.Lock()
	km, ok := ul.locks[key]
	ul.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-km.sem:
		ul.releaseRef(key, km)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(key string) bool {
	km := ul.acquireRef(key)
	select {
	case km.sem <- struct{}{}:
		return true
	default:
		ul.releaseRef(key, km)
		return false
	}
}

// LockContext acquires the lock for key or returns ctx.Err() if ctx ends first.
func (ul *UserLock) LockContext(ctx context.Context, key string) error {
	km := ul.acquireRef(key)
	select {
	case km.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseRef(key, km)
		return ctx.Err()
	}
}

// WithLock executes fn while holding the lock for key.
func (ul *UserLock) WithLock(key string, fn func() error) error {
	ul.Lock(key)
	defer ul.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key. It gives up
// with ErrLockTimeout if the lock is not acquired within timeout; a
// cancelled parent context is returned as is.
func (ul *UserLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ul.LockContext(lockCtx, key); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	defer ul.Unlock(key)

	return fn()
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(key string) bool {
	ul.mu.Lock()
	km, ok := ul.locks[key]
	ul.mu.Unlock()
	if !ok {
		return false
	}
	return len(km.sem) == 1
}

// Len returns the number of keys currently tracked.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
