package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldEntityKind = "entity_kind"
	FieldEntityID   = "entity_id"
	FieldAmount     = "amount"
	FieldBackend    = "backend"
	FieldQueue      = "queue"
	FieldExchange   = "exchange"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
	ComponentBackend = "backend"
)

// Operations defines standard operation names.
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpPayment    = "loan_payment"
	OpContribute = "goal_contribution"
	OpMarkPaid   = "bill_mark_paid"
	OpSync       = "sync"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)

// Error type categories surfaced in logs.
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeInvariant  = "invariant_violation"
	ErrorTypeStore      = "store_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)
