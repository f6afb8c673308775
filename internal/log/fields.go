package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldUserKey   = "user_key"
	FieldError     = "error"
	FieldKind      = "kind"
	FieldAmount    = "amount"
	FieldCategory  = "category"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentAlerts   = "alerts"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentMissions = "missions"
)
