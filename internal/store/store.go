package store

import (
	"context"
	"errors"
	"time"
)

// Signals from the backing store. The data layer maps these onto its own
// error taxonomy; nothing above the adapter should depend on pgx types.
var (
	ErrNotFound        = errors.New("record_not_found")
	ErrNoRowsAffected  = errors.New("no_rows_affected")
	ErrUniqueViolation = errors.New("unique_violation")
	ErrUnknownTable    = errors.New("unknown_table")
	ErrUnknownColumn   = errors.New("unknown_column")
)

/*
Record is the generic row shape shared by every versioned table: the
bookkeeping columns owned by the store plus the table-specific columns in
Fields. Version is authoritative in the store: adapters increment it on
every successful conditional update, never the caller.
*/
type Record struct {
	ID        string         `json:"id"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    map[string]any `json:"fields"`
}

// Clone returns a copy whose Fields map is independent of the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

/*
Store is the narrow adapter contract the concurrency core runs against.
Implementations must treat ConditionalUpdate and ConditionalDelete as atomic
compare-and-swap on (id, version): the write succeeds only if the stored
version still equals expectedVersion at write time.
*/
type Store interface {
	// FetchByID returns ErrNotFound when no row matches.
	FetchByID(ctx context.Context, table, id string) (*Record, error)

	// ConditionalUpdate applies patch and bumps version+updated_at iff the
	// stored version equals expectedVersion. Returns ErrNoRowsAffected when
	// the version check fails (or the row is gone).
	ConditionalUpdate(ctx context.Context, table, id string, expectedVersion int64, patch map[string]any) (*Record, error)

	// Insert stores a new row with version 1 and store-set timestamps.
	// Returns ErrUniqueViolation when a unique constraint rejects it.
	Insert(ctx context.Context, table, id string, fields map[string]any) (*Record, error)

	// ConditionalDelete removes the row iff the stored version equals
	// expectedVersion. Returns ErrNoRowsAffected otherwise.
	ConditionalDelete(ctx context.Context, table, id string, expectedVersion int64) error

	// FindByUniqueFields returns rows matching ANY of the given field values.
	FindByUniqueFields(ctx context.Context, table string, fields map[string]any) ([]*Record, error)
}
