// Package lock provides the per-payment exclusion taken around every operation that
// can move a payment through processing. The processing state alone only guards
// re-entry within one call chain.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLocked = errors.New("resource is locked")

type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// LocalLocker is used when no Redis is configured; it only protects a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]time.Time{}, now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, ok := l.held[key]; ok && now.Before(expiresAt) {
		return nil, ErrLocked
	}
	expiresAt := now.Add(ttl)
	l.held[key] = expiresAt

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.Equal(expiresAt) {
			delete(l.held, key)
		}
		return nil
	}, nil
}
