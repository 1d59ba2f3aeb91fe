package log

// Common field names for structured logging.
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldTransaction  = "transaction_id"
	FieldDefinition   = "definition_id"
	FieldCategory     = "category_id"
	FieldAmountCents  = "amount_cents"
	FieldDate         = "date"
	FieldCreatedCount = "created"
	FieldFailedCount  = "failed"
)

// Standard component names.
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentMaterializer = "materializer"
	ComponentSyncWorker   = "sync_worker"
	ComponentSheets       = "sheets"
	ComponentCache        = "cache"
	ComponentTrace        = "trace"
	ComponentTransfer     = "transfer"
)
