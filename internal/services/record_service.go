package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/models"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

/*
RecordService sits between the HTTP controllers and the concurrency core.
It validates table names against the registry, strips bookkeeping columns
out of client patches, and translates the core's error taxonomy into
AppErrors with stable HTTP codes.
*/
type RecordService struct {
	core *db.Service
}

func NewRecordService(core *db.Service) *RecordService {
	return &RecordService{core: core}
}

func (s *RecordService) UpdateRecord(ctx context.Context, table, id string, updates map[string]any, expectedVersion int64) (*store.Record, error) {
	spec, err := s.tableSpec(table)
	if err != nil {
		return nil, err
	}
	patch, err := sanitizePatch(spec, updates)
	if err != nil {
		return nil, err
	}

	rec, err := s.core.UpdateWithOptimisticLocking(ctx, table, id, patch, expectedVersion)
	if err != nil {
		return nil, s.mapError(table, id, err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"table":   table,
		"id":      id,
		"version": rec.Version,
	}).Debug("Record updated")
	return rec, nil
}

func (s *RecordService) CreateRecord(ctx context.Context, table string, data map[string]any, uniqueFields []string) (*store.Record, error) {
	spec, err := s.tableSpec(table)
	if err != nil {
		return nil, err
	}
	for _, field := range uniqueFields {
		if !spec.UpdatableColumn(field) {
			return nil, &utils.AppError{
				StatusCode: http.StatusBadRequest,
				Code:       utils.ErrCodeValidation,
				Message:    fmt.Sprintf("Unknown unique field %q for table %q", field, table),
			}
		}
	}

	rec, err := s.core.CreateSafely(ctx, table, data, uniqueFields)
	if err != nil {
		return nil, s.mapError(table, "", err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"table": table,
		"id":    rec.ID,
	}).Debug("Record created")
	return rec, nil
}

func (s *RecordService) DeleteRecord(ctx context.Context, table, id string, expectedVersion int64) error {
	if _, err := s.tableSpec(table); err != nil {
		return err
	}
	if err := s.core.DeleteWithVersion(ctx, table, id, expectedVersion); err != nil {
		return s.mapError(table, id, err)
	}
	utils.Logger.WithFields(logrus.Fields{"table": table, "id": id}).Debug("Record deleted")
	return nil
}

func (s *RecordService) BatchUpdate(ctx context.Context, ops []db.BatchOperation) ([]*store.Record, error) {
	for i := range ops {
		spec, err := s.tableSpec(ops[i].Table)
		if err != nil {
			return nil, err
		}
		patch, err := sanitizePatch(spec, ops[i].Updates)
		if err != nil {
			return nil, err
		}
		ops[i].Updates = patch
	}

	results, err := s.core.BatchUpdate(ctx, ops)
	if err != nil {
		return results, s.mapError("batch", "", err)
	}
	return results, nil
}

// ResolveConflict applies a strategy over submitted local/remote state. The
// manual strategy always errors; the caller is expected to come back with
// local or remote once a human has chosen.
func (s *RecordService) ResolveConflict(localData map[string]any, remoteData *store.Record, strategy db.ResolutionStrategy) (*store.Record, error) {
	resolved, err := db.ResolveConflict(localData, remoteData, strategy)
	if errors.Is(err, db.ErrManualResolution) {
		return nil, &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeManualResolution,
			Message:    "Manual strategy requires a human decision; re-submit with local or remote",
			Err:        err,
		}
	}
	if err != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    err.Error(),
			Err:        err,
		}
	}
	return resolved, nil
}

func (s *RecordService) MetricsSnapshot() db.MetricsSnapshot {
	return s.core.Context().Metrics.Snapshot()
}

// IsLocked backs the UI's busy indicator.
func (s *RecordService) IsLocked(table, id string) bool {
	return s.core.IsLocked(table, id)
}

/* ───────────── helpers ───────────── */

func (s *RecordService) tableSpec(table string) (models.TableSpec, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return models.TableSpec{}, &utils.AppError{
			StatusCode: http.StatusNotFound,
			Code:       utils.ErrCodeUnknownTable,
			Message:    fmt.Sprintf("Unknown table %q", table),
			Err:        utils.ErrUnknownTable,
		}
	}
	return spec, nil
}

// sanitizePatch drops bookkeeping columns the client must not set and
// rejects columns the table does not declare.
func sanitizePatch(spec models.TableSpec, updates map[string]any) (map[string]any, error) {
	patch := make(map[string]any, len(updates))
	for col, v := range updates {
		switch col {
		case "id", "version", "created_at", "updated_at":
			continue
		}
		if !spec.UpdatableColumn(col) {
			return nil, &utils.AppError{
				StatusCode: http.StatusBadRequest,
				Code:       utils.ErrCodeValidation,
				Message:    fmt.Sprintf("Column %q is not updatable on table %q", col, spec.Name),
			}
		}
		patch[col] = v
	}
	if len(patch) == 0 {
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "No updatable columns in payload",
			Err:        utils.ErrEmptyPatch,
		}
	}
	return patch, nil
}

// mapError translates the concurrency core's taxonomy into AppErrors.
// Anything unrecognized has already exhausted its retry budget and is
// reported as temporarily unavailable.
func (s *RecordService) mapError(table, id string, err error) error {
	var (
		conflictErr *db.ConflictError
		dupErr      *db.DuplicateError
		notFoundErr *db.NotFoundError
		lockErr     *db.LockHeldError
		appErr      *utils.AppError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &conflictErr):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeRowVersionConflict,
			Message:    "Record was modified by someone else; review both versions and resolve",
			Details:    conflictErr.Conflict,
			Err:        err,
		}
	case errors.As(err, &dupErr):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeDuplicateValue,
			Message:    "A record with the same unique value already exists",
			Err:        err,
		}
	case errors.As(err, &notFoundErr):
		return &utils.AppError{
			StatusCode: http.StatusNotFound,
			Code:       utils.ErrCodeNotFound,
			Message:    fmt.Sprintf("Record %s not found in %s", notFoundErr.ID, notFoundErr.Table),
			Err:        err,
		}
	case errors.As(err, &lockErr):
		return &utils.AppError{
			StatusCode: http.StatusLocked,
			Code:       utils.ErrCodeOperationInProgress,
			Message:    "Another operation on this record is in progress; try again shortly",
			Err:        err,
		}
	case errors.Is(err, store.ErrUnknownColumn):
		return &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    err.Error(),
			Err:        err,
		}
	}

	utils.Logger.WithError(err).WithFields(logrus.Fields{
		"table": table,
		"id":    id,
	}).Error("Operation failed after retries")
	return &utils.AppError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       utils.ErrCodeServiceUnavailable,
		Message:    "Storage temporarily unavailable; please retry",
		Err:        err,
	}
}
