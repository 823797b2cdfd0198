package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/models"
)

/*
MemoryStore is a process-local Store used by tests and local development.
It honors the same contract as the Postgres adapter: atomic compare-and-swap
on (id, version) and unique-field enforcement at insert, both guarded by a
single mutex so concurrent goroutines observe store-side atomicity.
*/
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]*Record)}
}

func (s *MemoryStore) FetchByID(ctx context.Context, table, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table(table)
	if err != nil {
		return nil, err
	}
	rec, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, table, id string, expectedVersion int64, patch map[string]any) (*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	rec, found := rows[id]
	if !found || rec.Version != expectedVersion {
		return nil, ErrNoRowsAffected
	}

	for col := range patch {
		if !spec.UpdatableColumn(col) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
	}
	for col, v := range patch {
		rec.Fields[col] = v
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	return rec.Clone(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table(table)
	if err != nil {
		return nil, err
	}
	if _, exists := rows[id]; exists {
		return nil, ErrUniqueViolation
	}
	for col := range fields {
		if !spec.UpdatableColumn(col) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
	}
	// Registered unique columns behave like a database UNIQUE constraint.
	for _, col := range spec.Unique {
		v, present := fields[col]
		if !present {
			continue
		}
		for _, existing := range rows {
			if existing.Fields[col] == v {
				return nil, ErrUniqueViolation
			}
		}
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:        id,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    make(map[string]any, len(fields)),
	}
	for col, v := range fields {
		rec.Fields[col] = v
	}
	rows[id] = rec
	return rec.Clone(), nil
}

func (s *MemoryStore) ConditionalDelete(ctx context.Context, table, id string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table(table)
	if err != nil {
		return err
	}
	rec, ok := rows[id]
	if !ok || rec.Version != expectedVersion {
		return ErrNoRowsAffected
	}
	delete(rows, id)
	return nil
}

func (s *MemoryStore) FindByUniqueFields(ctx context.Context, table string, fields map[string]any) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table(table)
	if err != nil {
		return nil, err
	}

	var out []*Record
	for _, rec := range rows {
		for col, v := range fields {
			if rec.Fields[col] == v {
				out = append(out, rec.Clone())
				break
			}
		}
	}
	return out, nil
}

// table must be called with s.mu held.
func (s *MemoryStore) table(name string) (map[string]*Record, error) {
	if _, ok := models.LookupTable(name); !ok {
		return nil, ErrUnknownTable
	}
	rows, ok := s.tables[name]
	if !ok {
		rows = make(map[string]*Record)
		s.tables[name] = rows
	}
	return rows, nil
}
