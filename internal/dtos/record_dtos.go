package dtos

import (
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
)

// UpdateRecordRequest drives PUT /api/v1/records/{table}/{id}.
// ExpectedVersion is the version the client last read; the update succeeds
// only if the store still holds it.
type UpdateRecordRequest struct {
	Updates         map[string]any `json:"updates" validate:"required,min=1"`
	ExpectedVersion int64          `json:"expected_version" validate:"required,gte=1"`
}

type CreateRecordRequest struct {
	Data         map[string]any `json:"data" validate:"required,min=1"`
	UniqueFields []string       `json:"unique_fields,omitempty"`
}

type BatchOperationDTO struct {
	Table           string         `json:"table" validate:"required"`
	ID              string         `json:"id" validate:"required"`
	Updates         map[string]any `json:"updates" validate:"required,min=1"`
	ExpectedVersion int64          `json:"expected_version" validate:"required,gte=1"`
}

type BatchUpdateRequest struct {
	Operations []BatchOperationDTO `json:"operations" validate:"required,min=1,dive"`
}

// BatchUpdateResponse reports per-item outcomes. Batches are not
// transactions: on failure, Committed tells the caller how many leading
// items were already written.
type BatchUpdateResponse struct {
	Results   []*store.Record `json:"results"`
	Committed int             `json:"committed"`
}

// BatchFailureDetails is the error payload for a failed batch: the failing
// item's own details (e.g. both sides of its conflict) plus what landed
// before the failure, so the client can reconcile.
type BatchFailureDetails struct {
	Cause     any             `json:"cause,omitempty"`
	Results   []*store.Record `json:"results"`
	Committed int             `json:"committed"`
}

type ResolveConflictRequest struct {
	LocalData  map[string]any `json:"local_data" validate:"required"`
	RemoteData *store.Record  `json:"remote_data" validate:"required"`
	Strategy   string         `json:"strategy" validate:"required,oneof=local remote merge manual"`
}

type ResolveConflictResponse struct {
	Resolved *store.Record `json:"resolved"`
	// ExpectedVersion is what the follow-up update must carry.
	ExpectedVersion int64 `json:"expected_version"`
}

type RecordStatusResponse struct {
	Table  string `json:"table"`
	ID     string `json:"id"`
	Locked bool   `json:"locked"`
}

type MetricsResponse struct {
	Concurrency db.MetricsSnapshot `json:"concurrency"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
