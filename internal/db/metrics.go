package db

import "sync/atomic"

// Metrics holds process-wide concurrency counters. All methods are safe for
// concurrent use and never fail; readers get a consistent-enough snapshot
// for observability, not an audit trail.
type Metrics struct {
	operations atomic.Int64
	conflicts  atomic.Int64
	retries    atomic.Int64
	lockWaits  atomic.Int64
}

type MetricsSnapshot struct {
	Operations int64 `json:"operations"`
	Conflicts  int64 `json:"conflicts"`
	Retries    int64 `json:"retries"`
	LockWaits  int64 `json:"lock_waits"`

	ConflictRate float64 `json:"conflict_rate"`
	RetryRate    float64 `json:"retry_rate"`
	LockWaitRate float64 `json:"lock_wait_rate"`
}

func (m *Metrics) IncOperations() { m.operations.Add(1) }
func (m *Metrics) IncConflicts()  { m.conflicts.Add(1) }
func (m *Metrics) IncRetries()    { m.retries.Add(1) }
func (m *Metrics) IncLockWaits()  { m.lockWaits.Add(1) }

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Operations: m.operations.Load(),
		Conflicts:  m.conflicts.Load(),
		Retries:    m.retries.Load(),
		LockWaits:  m.lockWaits.Load(),
	}
	if snap.Operations > 0 {
		snap.ConflictRate = float64(snap.Conflicts) / float64(snap.Operations)
		snap.RetryRate = float64(snap.Retries) / float64(snap.Operations)
		snap.LockWaitRate = float64(snap.LockWaits) / float64(snap.Operations)
	}
	return snap
}

// Reset zeroes every counter. Test isolation only.
func (m *Metrics) Reset() {
	m.operations.Store(0)
	m.conflicts.Store(0)
	m.retries.Store(0)
	m.lockWaits.Store(0)
}
