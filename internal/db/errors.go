package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
)

/*
Conflict describes one detected divergence between a writer's assumption and
the stored row. LocalData is the writer's intended patch plus the version it
believed was current; RemoteData is the row actually stored at detection
time (nil when the row was deleted underneath the writer).
*/
type Conflict struct {
	LocalData  map[string]any `json:"local_data"`
	RemoteData *store.Record  `json:"remote_data"`
	Timestamp  time.Time      `json:"timestamp"`
	Resolved   bool           `json:"resolved"`
}

func newConflict(updates map[string]any, expectedVersion int64, remote *store.Record) *Conflict {
	local := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		local[k] = v
	}
	local["version"] = expectedVersion
	return &Conflict{
		LocalData:  local,
		RemoteData: remote,
		Timestamp:  time.Now().UTC(),
	}
}

// ConflictError is never retried: the caller must resolve or re-read.
type ConflictError struct {
	Table    string
	ID       string
	Conflict *Conflict
}

func (e *ConflictError) Error() string {
	remoteVersion := int64(0)
	if e.Conflict.RemoteData != nil {
		remoteVersion = e.Conflict.RemoteData.Version
	}
	return fmt.Sprintf("version conflict on %s:%s (local %v, remote %d)",
		e.Table, e.ID, e.Conflict.LocalData["version"], remoteVersion)
}

// DuplicateError reports a unique-field collision at create time. It is a
// distinct failure from a version conflict: the caller must pick another
// value, there is nothing to resolve.
type DuplicateError struct {
	Table  string
	Fields map[string]any
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value on %s for %v", e.Table, e.Fields)
}

type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s record with id %s", e.Table, e.ID)
}

// LockHeldError means another in-process operation is already working on the
// same entity. Surfaced immediately; queueing would mask double submission.
type LockHeldError struct {
	Key string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("operation already in progress for %s", e.Key)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// retryable reports whether an error is a transient failure worth another
// attempt. Everything in the structured taxonomy requires caller action and
// must surface unchanged.
func retryable(err error) bool {
	var (
		ce *ConflictError
		de *DuplicateError
		ne *NotFoundError
		le *LockHeldError
	)
	switch {
	case errors.As(err, &ce), errors.As(err, &de), errors.As(err, &ne), errors.As(err, &le):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, store.ErrUnknownTable), errors.Is(err, store.ErrUnknownColumn):
		return false
	case errors.Is(err, ErrManualResolution):
		return false
	}
	return true
}
