package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/dtos"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/services"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

type RecordController struct {
	svc *services.RecordService
}

func NewRecordController(s *services.RecordService) *RecordController {
	return &RecordController{svc: s}
}

var validate = validator.New()

// -----------------------------------------------------------------------------
// PUT /api/v1/records/{table}/{id}
// -----------------------------------------------------------------------------
func (c *RecordController) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req dtos.UpdateRecordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := c.svc.UpdateRecord(r.Context(), vars["table"], vars["id"], req.Updates, req.ExpectedVersion)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rec)
}

// -----------------------------------------------------------------------------
// POST /api/v1/records/{table}
// -----------------------------------------------------------------------------
func (c *RecordController) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req dtos.CreateRecordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := c.svc.CreateRecord(r.Context(), vars["table"], req.Data, req.UniqueFields)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, rec)
}

// -----------------------------------------------------------------------------
// DELETE /api/v1/records/{table}/{id}?expected_version=N
// -----------------------------------------------------------------------------
func (c *RecordController) DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	expectedVersion, err := strconv.ParseInt(r.URL.Query().Get("expected_version"), 10, 64)
	if err != nil || expectedVersion < 1 {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation,
			"expected_version query parameter must be a positive integer", nil, err)
		return
	}

	if err := c.svc.DeleteRecord(r.Context(), vars["table"], vars["id"], expectedVersion); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// POST /api/v1/records/batch
// -----------------------------------------------------------------------------
func (c *RecordController) BatchUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.BatchUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ops := make([]db.BatchOperation, 0, len(req.Operations))
	for _, op := range req.Operations {
		ops = append(ops, db.BatchOperation{
			Table:           op.Table,
			ID:              op.ID,
			Updates:         op.Updates,
			ExpectedVersion: op.ExpectedVersion,
		})
	}

	results, err := c.svc.BatchUpdate(r.Context(), ops)
	if err != nil {
		// Not transactional: leading items may be committed. Attach what
		// landed, alongside the failing item's own details, so the client
		// can reconcile.
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			appErr.Details = dtos.BatchFailureDetails{
				Cause:     appErr.Details,
				Results:   results,
				Committed: len(results),
			}
		}
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.BatchUpdateResponse{Results: results, Committed: len(results)})
}

// -----------------------------------------------------------------------------
// POST /api/v1/conflicts/resolve
// -----------------------------------------------------------------------------
func (c *RecordController) ResolveConflictHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ResolveConflictRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resolved, err := c.svc.ResolveConflict(req.LocalData, req.RemoteData, db.ResolutionStrategy(req.Strategy))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ResolveConflictResponse{
		Resolved:        resolved,
		ExpectedVersion: resolved.Version,
	})
}

// -----------------------------------------------------------------------------
// GET /api/v1/records/{table}/{id}/status
// -----------------------------------------------------------------------------
func (c *RecordController) RecordStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	utils.RespondWithJSON(w, http.StatusOK, dtos.RecordStatusResponse{
		Table:  vars["table"],
		ID:     vars["id"],
		Locked: c.svc.IsLocked(vars["table"], vars["id"]),
	})
}

// -----------------------------------------------------------------------------
// GET /api/v1/concurrency/metrics
// -----------------------------------------------------------------------------
func (c *RecordController) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, dtos.MetricsResponse{Concurrency: c.svc.MetricsSnapshot()})
}

/* ───────────── shared helpers ───────────── */

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Payload failed validation", nil, err)
		return false
	}
	return true
}
