// Package keylock provides mutual exclusion scoped to string keys.
//
// A Locker keeps one lock per key that is currently held or waited on and
// forgets the key once the last holder releases it, so the map never grows
// with the number of distinct keys ever seen.
package keylock

import (
	"context"
	"slices"
	"sync"
)

type keyLock struct {
	// ch has capacity 1; a token in the channel means the key is held.
	ch   chan struct{}
	refs int
}

// Locker serializes callers per key. The zero value is not usable; use New.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is held by the caller or ctx is done. On success the
// returned function releases the key; it must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	kl := l.ref(key)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.unref(key, kl)
		})
	}, nil
}

// LockAll acquires every distinct key in sorted order, which keeps two callers
// locking overlapping key sets from deadlocking each other.
func (l *Locker) LockAll(ctx context.Context, keys ...string) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range sorted {
		release, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}

// Len reports how many keys are currently held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Locker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
