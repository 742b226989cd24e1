package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldTenant     = "tenant"
	FieldActor      = "actor"
	FieldKind       = "kind"
	FieldBatchID    = "batch_id"
	FieldRowCount   = "rows"
	FieldTotal      = "total"
	FieldBudgetID   = "budget_id"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBatch    = "batch"
	ComponentImporter = "importer"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpImport   = "import"
	OpResolve  = "resolve"
	OpValidate = "validate"
	OpCommit   = "commit"
	OpReset    = "reset"
	OpSweep    = "sweep"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
