package routes

const (
	Health             = "/health"
	RecordByID         = "/api/v1/records/{table}/{id}"
	RecordStatus       = "/api/v1/records/{table}/{id}/status"
	RecordCreate       = "/api/v1/records/{table}"
	RecordBatch        = "/api/v1/records/batch"
	ConflictResolve    = "/api/v1/conflicts/resolve"
	ConcurrencyMetrics = "/api/v1/concurrency/metrics"
)
