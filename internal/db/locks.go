package db

import (
	"sort"
	"sync"
)

// LockKey builds the canonical per-entity lock key.
func LockKey(table, id string) string {
	return table + ":" + id
}

/*
OperationLock is a process-wide advisory lock set keyed "<table>:<id>".
It guards against double submission from the same process (duplicate
clicks, re-entrant handlers), not against other processes; cross-process
races are caught by the version check in the store.

Acquisition is fail-fast: a held key means a logical operation is already
in flight for that entity, and queueing behind it would hide the double
submission instead of surfacing it.
*/
type OperationLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewOperationLock() *OperationLock {
	return &OperationLock{held: make(map[string]struct{})}
}

// TryAcquire takes the key if free and reports whether it did.
func (l *OperationLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

/*
TryAcquireAll takes every key or none. Keys are sorted before acquisition so
overlapping batches always contend in the same global order; the sorted,
deduplicated list is returned for the matching ReleaseAll, along with the
first already-held key when acquisition fails.
*/
func (l *OperationLock) TryAcquireAll(keys []string) (acquired []string, blocked string, ok bool) {
	sorted := dedupeSorted(keys)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range sorted {
		if _, taken := l.held[key]; taken {
			return nil, key, false
		}
	}
	for _, key := range sorted {
		l.held[key] = struct{}{}
	}
	return sorted, "", true
}

func (l *OperationLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *OperationLock) ReleaseAll(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		delete(l.held, key)
	}
}

// IsLocked is a non-blocking membership check for busy indicators.
func (l *OperationLock) IsLocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.held[key]
	return taken
}

// WithLock runs op while holding key, releasing on every exit path.
// Returns LockHeldError immediately when the key is taken.
func (l *OperationLock) WithLock(key string, op func() error) error {
	if !l.TryAcquire(key) {
		return &LockHeldError{Key: key}
	}
	defer l.Release(key)
	return op()
}

func dedupeSorted(keys []string) []string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	out := sorted[:0]
	for i, key := range sorted {
		if i == 0 || key != sorted[i-1] {
			out = append(out, key)
		}
	}
	return out
}
