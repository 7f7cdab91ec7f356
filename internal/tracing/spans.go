package tracing

// Span attribute keys.
const (
	AttrModelID      = "model.id"
	AttrModelState   = "model.state"
	AttrRequestID    = "generation.request_id"
	AttrHTTPMethod   = "http.method"
	AttrHTTPPath     = "http.path"
	AttrHTTPStatus   = "http.status_code"
	AttrRecordCount  = "registry.records"
	AttrChangedCount = "registry.changed"
	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanAPIRequest    = "apiclient.request"
	SpanSnapshotApply = "manager.snapshot"
	SpanAction        = "manager.action"
	SpanGenerate      = "manager.generate"
)
