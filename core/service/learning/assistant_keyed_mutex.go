// Package learning implements the pattern learner and the adaptation engine:
// folding observations into per-user behavioral patterns and turning trusted
// patterns into recommendations.
package learning

import "sync"

// =============================================================================
// Keyed Mutex
// =============================================================================

// keyedMutex serializes work per key. Entries are reference counted and
// removed once the last holder unlocks, so the map does not grow with the
// number of distinct keys ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
