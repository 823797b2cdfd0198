package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/models"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/routes"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/services"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	core := db.NewService(mem, db.NewConcurrencyContext(), db.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond})
	rc := NewRecordController(services.NewRecordService(core))
	hc := NewHealthController(nil)

	router := mux.NewRouter()
	router.HandleFunc(routes.Health, hc.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.RecordCreate, rc.CreateRecordHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.RecordByID, rc.UpdateRecordHandler).Methods(http.MethodPut)
	router.HandleFunc(routes.RecordByID, rc.DeleteRecordHandler).Methods(http.MethodDelete)
	router.HandleFunc(routes.RecordStatus, rc.RecordStatusHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.RecordBatch, rc.BatchUpdateHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.ConflictResolve, rc.ResolveConflictHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.ConcurrencyMetrics, rc.MetricsHandler).Methods(http.MethodGet)
	return router, mem
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func seedInvoice(t *testing.T, mem *store.MemoryStore, number string) *store.Record {
	t.Helper()
	inv := &models.Invoice{
		CustomerID:    uuid.New(),
		InvoiceNumber: number,
		Amount:        100,
		TaxAmount:     15,
		TotalAmount:   115,
		Status:        models.InvoiceStatusDraft,
	}
	rec, err := mem.Insert(context.Background(), models.TableInvoices, uuid.NewString(), inv.Fields())
	require.NoError(t, err)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, http.MethodGet, routes.Health, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdateEndpoint_SuccessAndConflict(t *testing.T) {
	router, mem := newTestRouter(t)
	seed := seedInvoice(t, mem, "INV-001")
	path := fmt.Sprintf("/api/v1/records/invoices/%s", seed.ID)

	rr := doJSON(t, router, http.MethodPut, path, map[string]any{
		"updates":          map[string]any{"status": string(models.InvoiceStatusSent)},
		"expected_version": 1,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var updated store.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, int64(2), updated.Version)

	// Same expected_version again: the first writer already advanced it.
	rr = doJSON(t, router, http.MethodPut, path, map[string]any{
		"updates":          map[string]any{"status": string(models.InvoiceStatusPaid)},
		"expected_version": 1,
	})
	require.Equal(t, http.StatusConflict, rr.Code)

	var errBody utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	require.Equal(t, utils.ErrCodeRowVersionConflict, errBody.Code)
	require.NotNil(t, errBody.Details, "conflict responses expose both versions")
}

func TestUpdateEndpoint_ValidationErrors(t *testing.T) {
	router, mem := newTestRouter(t)
	seed := seedInvoice(t, mem, "INV-002")
	path := fmt.Sprintf("/api/v1/records/invoices/%s", seed.ID)

	// Missing expected_version.
	rr := doJSON(t, router, http.MethodPut, path, map[string]any{
		"updates": map[string]any{"status": "PAID"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Empty updates.
	rr = doJSON(t, router, http.MethodPut, path, map[string]any{
		"updates":          map[string]any{},
		"expected_version": 1,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateEndpoint_CreatedThenDuplicate(t *testing.T) {
	router, _ := newTestRouter(t)

	body := map[string]any{
		"data": map[string]any{
			"name":   "New Customer",
			"email":  "api@example.com",
			"status": string(models.CustomerStatusActive),
		},
		"unique_fields": []string{"email"},
	}
	rr := doJSON(t, router, http.MethodPost, "/api/v1/records/customers", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created store.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.Version)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/records/customers", body)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errBody utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	require.Equal(t, utils.ErrCodeDuplicateValue, errBody.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	seed := seedInvoice(t, mem, "INV-003")
	path := fmt.Sprintf("/api/v1/records/invoices/%s", seed.ID)

	rr := doJSON(t, router, http.MethodDelete, path+"?expected_version=abc", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, path+"?expected_version=1", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, path+"?expected_version=1", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestBatchEndpoint_PartialFailureReportsCommitted(t *testing.T) {
	router, mem := newTestRouter(t)
	a := seedInvoice(t, mem, "INV-004")
	b := seedInvoice(t, mem, "INV-005")

	rr := doJSON(t, router, http.MethodPost, routes.RecordBatch, map[string]any{
		"operations": []map[string]any{
			{"table": "invoices", "id": a.ID, "updates": map[string]any{"status": "SENT"}, "expected_version": 1},
			{"table": "invoices", "id": b.ID, "updates": map[string]any{"status": "SENT"}, "expected_version": 42},
		},
	})
	require.Equal(t, http.StatusConflict, rr.Code)

	// The body must report both the conflict and what landed before it.
	var errBody utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	require.Equal(t, utils.ErrCodeRowVersionConflict, errBody.Code)

	details, ok := errBody.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), details["committed"])
	require.Len(t, details["results"], 1)
	require.NotNil(t, details["cause"], "the failing item's conflict sides travel with the batch outcome")

	// First item committed despite the batch error.
	current, err := mem.FetchByID(context.Background(), models.TableInvoices, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), current.Version)
}

func TestResolveEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	remote := map[string]any{
		"id":         "inv-9",
		"version":    5,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
		"created_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
		"fields":     map[string]any{"status": "SENT"},
	}

	rr := doJSON(t, router, http.MethodPost, routes.ConflictResolve, map[string]any{
		"local_data":  map[string]any{"status": "PAID"},
		"remote_data": remote,
		"strategy":    "local",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Resolved        *store.Record `json:"resolved"`
		ExpectedVersion int64         `json:"expected_version"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "PAID", resp.Resolved.Fields["status"])
	require.Equal(t, int64(5), resp.ExpectedVersion)

	rr = doJSON(t, router, http.MethodPost, routes.ConflictResolve, map[string]any{
		"local_data":  map[string]any{"status": "PAID"},
		"remote_data": remote,
		"strategy":    "manual",
	})
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, routes.ConflictResolve, map[string]any{
		"local_data":  map[string]any{"status": "PAID"},
		"remote_data": remote,
		"strategy":    "theirs",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code, "validator rejects unknown strategies")
}

func TestStatusAndMetricsEndpoints(t *testing.T) {
	router, mem := newTestRouter(t)
	seed := seedInvoice(t, mem, "INV-006")

	rr := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/records/invoices/%s/status", seed.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status struct {
		Locked bool `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.False(t, status.Locked)

	rr = doJSON(t, router, http.MethodGet, routes.ConcurrencyMetrics, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}
