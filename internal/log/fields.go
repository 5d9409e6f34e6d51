package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUID        = "uid"
	FieldDateKey    = "date_key"
	FieldMonthKey   = "month_key"
	FieldBackend    = "backend"
	FieldMessageID  = "message_id"
	FieldReportID   = "report_id"
	FieldCount      = "count"
	FieldAmount     = "amount"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentWorkData = "workdata"
	ComponentDocStore = "docstore"
	ComponentBackend  = "backend"
	ComponentAMQP     = "amqp"
	ComponentReminder = "reminder"
	ComponentNotifier = "notifier"
	ComponentMail     = "mail"
	ComponentAuth     = "auth"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpSignIn        = "sign_in"
	OpSignOut       = "sign_out"
	OpEnsureMonth   = "ensure_month"
	OpCreateProfile = "create_profile"
	OpUpdateProfile = "update_profile"
	OpSaveSession   = "save_session"
	OpMarkPaid      = "mark_paid"
	OpSaveDay       = "save_day"
	OpExport        = "export"
	OpImport        = "import"
	OpReport        = "report"
	OpRemind        = "remind"
	OpShutdown      = "shutdown"
	OpStartup       = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the signed-in user
func (f LogFields) WithUser(uid string) LogFields {
	f[FieldUID] = uid
	return f
}

// WithDateKey adds a work day key
func (f LogFields) WithDateKey(key string) LogFields {
	f[FieldDateKey] = key
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog. The component field is
// left out because Logger adds its own.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
