package db

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndRates(t *testing.T) {
	var m Metrics

	for i := 0; i < 10; i++ {
		m.IncOperations()
	}
	m.IncConflicts()
	m.IncConflicts()
	m.IncRetries()
	m.IncLockWaits()

	snap := m.Snapshot()
	require.Equal(t, int64(10), snap.Operations)
	require.Equal(t, int64(2), snap.Conflicts)
	require.Equal(t, int64(1), snap.Retries)
	require.Equal(t, int64(1), snap.LockWaits)
	require.InDelta(t, 0.2, snap.ConflictRate, 1e-9)
	require.InDelta(t, 0.1, snap.RetryRate, 1e-9)
	require.InDelta(t, 0.1, snap.LockWaitRate, 1e-9)
}

func TestMetrics_EmptySnapshotHasNoRates(t *testing.T) {
	var m Metrics
	snap := m.Snapshot()
	require.Zero(t, snap.Operations)
	require.Zero(t, snap.ConflictRate)
}

func TestMetrics_Reset(t *testing.T) {
	var m Metrics
	m.IncOperations()
	m.IncConflicts()
	m.Reset()

	snap := m.Snapshot()
	require.Zero(t, snap.Operations)
	require.Zero(t, snap.Conflicts)
}

func TestMetrics_ConcurrentIncrements(t *testing.T) {
	var m Metrics
	var wg sync.WaitGroup

	const goroutines, perGoroutine = 8, 100
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.IncOperations()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(goroutines*perGoroutine), m.Snapshot().Operations)
}
