package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "ano"
	FieldMonth         = "mes"
	FieldBimestre      = "bimestre"
	FieldCOUG          = "coug"
	FieldFiltro        = "filtro"
	FieldRelatorio     = "relatorio"
	FieldFormato       = "formato"
	FieldBanco         = "banco"
	FieldTabela        = "tabela"
	FieldLinhas        = "linhas"
	FieldArquivo       = "arquivo"
	FieldRunID         = "run_id"
	FieldErrorType     = "error_type"
	FieldThreat        = "threat"
	FieldTemplate      = "template"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentReports      = "reports"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentETL          = "etl"
	ComponentExport       = "export"
	ComponentVisualizador = "visualizador"
	ComponentSheets       = "sheets"
	ComponentCache        = "cache"
	ComponentSecurity     = "security"
	ComponentRateLimit    = "rate_limit"
	ComponentTrace        = "trace"
	ComponentBackend      = "backend"
	ComponentTemplate     = "template"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpList      = "list"
	OpLoad      = "load"
	OpTruncate  = "truncate"
	OpIndex     = "index"
	OpPublish   = "publish"
	OpRefresh   = "refresh"
	OpValidate  = "validate"
	OpParse     = "parse"
	OpRender    = "render"
	OpExport    = "export"
	OpAggregate = "aggregate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
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

// WithReport adds the parameters every report request carries
func (f LogFields) WithReport(relatorio string, ano, mes int, coug, filtro string) LogFields {
	f[FieldRelatorio] = relatorio
	f[FieldYear] = ano
	f[FieldMonth] = mes
	if coug != "" {
		f[FieldCOUG] = coug
	}
	if filtro != "" {
		f[FieldFiltro] = filtro
	}
	return f
}

// WithLoad adds ETL load fields
func (f LogFields) WithLoad(runID, tabela string, linhas int64) LogFields {
	f[FieldRunID] = runID
	f[FieldTabela] = tabela
	f[FieldLinhas] = linhas
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
