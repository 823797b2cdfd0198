package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

/*
ConcurrencyContext owns the process-wide shared state of the data layer:
the advisory lock set and the metrics counters. It is created once at app
start and injected into the Service; no package-level globals, and tests
get isolation through fresh contexts or Reset.
*/
type ConcurrencyContext struct {
	Locks   *OperationLock
	Metrics *Metrics
}

func NewConcurrencyContext() *ConcurrencyContext {
	return &ConcurrencyContext{
		Locks:   NewOperationLock(),
		Metrics: &Metrics{},
	}
}

// Reset zeroes the metrics. Locks are expected to be free between tests;
// a held key at reset time is a leaked operation, not state to clear.
func (c *ConcurrencyContext) Reset() {
	c.Metrics.Reset()
}

// BatchOperation is one item of a BatchUpdate.
type BatchOperation struct {
	Table           string
	ID              string
	Updates         map[string]any
	ExpectedVersion int64
}

/*
Service is the optimistic-concurrency data-access layer. Every mutation
goes through a per-entity advisory lock, a version compare, and a
conditional write against the store; transient failures are retried with
jittered backoff while conflicts surface immediately.
*/
type Service struct {
	store store.Store
	cc    *ConcurrencyContext
	retry RetryPolicy
}

func NewService(st store.Store, cc *ConcurrencyContext, retry RetryPolicy) *Service {
	return &Service{store: st, cc: cc, retry: retry}
}

// Context exposes the injected lock set and metrics (busy indicators,
// metrics endpoints).
func (s *Service) Context() *ConcurrencyContext {
	return s.cc
}

// IsLocked reports whether an operation is currently in flight for the
// entity in this process.
func (s *Service) IsLocked(table, id string) bool {
	return s.cc.Locks.IsLocked(LockKey(table, id))
}

/*
UpdateWithOptimisticLocking applies updates to table/id iff the stored
version still equals expectedVersion. The returned record carries the new
version and timestamp. A stale expectedVersion, detected on the pre-read
or by the conditional write affecting zero rows, yields a ConflictError
carrying both sides; only transient failures are retried.
*/
func (s *Service) UpdateWithOptimisticLocking(ctx context.Context, table, id string, updates map[string]any, expectedVersion int64) (*store.Record, error) {
	s.cc.Metrics.IncOperations()
	return WithRetry(ctx, s.retry, s.onRetry(table, id), func() (*store.Record, error) {
		key := LockKey(table, id)
		if !s.cc.Locks.TryAcquire(key) {
			s.cc.Metrics.IncLockWaits()
			return nil, &LockHeldError{Key: key}
		}
		defer s.cc.Locks.Release(key)

		return s.updateLocked(ctx, table, id, updates, expectedVersion)
	})
}

// updateLocked is the read-compare-write cycle. The caller must hold the
// entity's operation lock.
func (s *Service) updateLocked(ctx context.Context, table, id string, updates map[string]any, expectedVersion int64) (*store.Record, error) {
	current, err := s.store.FetchByID(ctx, table, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Table: table, ID: id}
	}
	if err != nil {
		return nil, err
	}

	if current.Version != expectedVersion {
		s.cc.Metrics.IncConflicts()
		return nil, &ConflictError{Table: table, ID: id, Conflict: newConflict(updates, expectedVersion, current)}
	}

	updated, err := s.store.ConditionalUpdate(ctx, table, id, expectedVersion, updates)
	if errors.Is(err, store.ErrNoRowsAffected) {
		// Another process won the race between our read and the write.
		// The pre-read row is the closest remote state we have.
		s.cc.Metrics.IncConflicts()
		return nil, &ConflictError{Table: table, ID: id, Conflict: newConflict(updates, expectedVersion, current)}
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

/*
CreateSafely inserts a new record with version 1. When uniqueFields are
given, an advisory pre-check rejects known duplicates early with a
DuplicateError; the database unique constraint remains the real guard, and
its violation maps to the same error. The id is taken from data when
present, otherwise generated.
*/
func (s *Service) CreateSafely(ctx context.Context, table string, data map[string]any, uniqueFields []string) (*store.Record, error) {
	s.cc.Metrics.IncOperations()
	return WithRetry(ctx, s.retry, s.onRetry(table, "create"), func() (*store.Record, error) {
		if len(uniqueFields) > 0 {
			probe := make(map[string]any, len(uniqueFields))
			for _, field := range uniqueFields {
				if v, ok := data[field]; ok {
					probe[field] = v
				}
			}
			if len(probe) > 0 {
				existing, err := s.store.FindByUniqueFields(ctx, table, probe)
				if err != nil {
					return nil, err
				}
				if len(existing) > 0 {
					return nil, &DuplicateError{Table: table, Fields: probe}
				}
			}
		}

		id, fields := splitID(data)
		rec, err := s.store.Insert(ctx, table, id, fields)
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, &DuplicateError{Table: table, Fields: fields}
		}
		return rec, err
	})
}

/*
DeleteWithVersion removes table/id iff the stored version still equals
expectedVersion. Zero rows affected means someone else updated or deleted
the row first and yields a ConflictError. Delete is terminal: it is not
retried.
*/
func (s *Service) DeleteWithVersion(ctx context.Context, table, id string, expectedVersion int64) error {
	s.cc.Metrics.IncOperations()

	key := LockKey(table, id)
	if !s.cc.Locks.TryAcquire(key) {
		s.cc.Metrics.IncLockWaits()
		return &LockHeldError{Key: key}
	}
	defer s.cc.Locks.Release(key)

	err := s.store.ConditionalDelete(ctx, table, id, expectedVersion)
	if errors.Is(err, store.ErrNoRowsAffected) {
		s.cc.Metrics.IncConflicts()
		remote, fetchErr := s.store.FetchByID(ctx, table, id)
		if fetchErr != nil {
			remote = nil // row already gone; conflict descriptor carries no remote
		}
		return &ConflictError{Table: table, ID: id, Conflict: newConflict(nil, expectedVersion, remote)}
	}
	return err
}

/*
BatchUpdate runs the operations sequentially under a single all-or-nothing
lock acquisition. Lock keys are sorted before acquisition so overlapping
batches always contend in the same global order and cannot deadlock.

The batch is NOT a transaction: items commit independently, execution stops
at the first failure, and items committed before it stay committed. The
partial results are returned alongside the error. Per-item retries are
disabled; a transient failure on one item fails the batch.
*/
func (s *Service) BatchUpdate(ctx context.Context, ops []BatchOperation) ([]*store.Record, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	acquired, blocked, ok := s.cc.Locks.TryAcquireAll(BatchLockKeys(ops))
	if !ok {
		s.cc.Metrics.IncLockWaits()
		return nil, &LockHeldError{Key: blocked}
	}
	defer s.cc.Locks.ReleaseAll(acquired)

	results := make([]*store.Record, 0, len(ops))
	for i, op := range ops {
		s.cc.Metrics.IncOperations()
		op := op
		rec, err := WithRetry(ctx, noRetries(), nil, func() (*store.Record, error) {
			return s.updateLocked(ctx, op.Table, op.ID, op.Updates, op.ExpectedVersion)
		})
		if err != nil {
			return results, fmt.Errorf("batch stopped at item %d (%s:%s), %d committed: %w",
				i, op.Table, op.ID, len(results), err)
		}
		results = append(results, rec)
	}
	return results, nil
}

// BatchLockKeys returns the sorted, deduplicated lock keys a batch will
// acquire, in acquisition order.
func BatchLockKeys(ops []BatchOperation) []string {
	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, LockKey(op.Table, op.ID))
	}
	return dedupeSorted(keys)
}

func (s *Service) onRetry(table, id string) func(attempt int, err error) {
	return func(attempt int, err error) {
		s.cc.Metrics.IncRetries()
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"table":   table,
			"id":      id,
			"attempt": attempt,
		}).Warn("Transient failure, retrying")
	}
}

func splitID(data map[string]any) (string, map[string]any) {
	fields := make(map[string]any, len(data))
	for k, v := range data {
		if metadataColumns[k] {
			continue
		}
		fields[k] = v
	}
	if id, ok := data["id"].(string); ok && id != "" {
		return id, fields
	}
	return uuid.NewString(), fields
}
