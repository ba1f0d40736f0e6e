package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context through a request.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldProductID is the catalog product being worked on
	FieldProductID = "product_id"

	// FieldProvider names the upstream API (catalog, gemini, vision, serpapi, google_cse)
	FieldProvider = "provider"
)

// Metric fields, attached per log line through the Entry API.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation or HTTP status
	FieldStatus = "status"

	// FieldBackendPage is the catalog page cursor used while filling a filtered page
	FieldBackendPage = "backend_page"
)
