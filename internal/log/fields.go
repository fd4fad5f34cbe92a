package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldGoalID      = "goal_id"
	FieldWishlistID  = "wishlist_id"
	FieldLineID      = "line_id"
	FieldLineKind    = "line_kind"
	FieldAmountCents = "amount_cents"
	FieldTotalCents  = "total_cents"
	FieldEmail       = "email"
	FieldBackend     = "backend"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentStorage  = "storage"
	ComponentSession  = "session"
	ComponentUser     = "user"
	ComponentBudget   = "budget"
	ComponentWishlist = "wishlist"
	ComponentReport   = "report"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
