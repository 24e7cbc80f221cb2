package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or the default logger tagged
// "unknown" outside a request.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware stores a per-request logger tagged with the request id
// returned by requestID. An empty id leaves the logger untagged.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the recurring events of the application with a
// fixed field set, so dashboards can rely on the keys.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	sl.logger.DebugContext(ctx, "HTTP request started", f.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(sl.logger.component)
	sl.logger.Logger.Log(ctx, statusLevel(statusCode), "HTTP request completed", f.ToSlice()...)
}

func (sl *StructuredLogger) LogReport(ctx context.Context, relatorio string, ano, mes int, coug, filtro, formato string, linhas int, elapsed time.Duration) {
	f := NewFields().
		WithReport(relatorio, ano, mes, coug, filtro).
		WithOperation(OpAggregate)
	f[FieldFormato] = formato
	f[FieldLinhas] = linhas
	f[FieldDurationHuman] = elapsed.String()
	sl.logger.InfoContext(ctx, "Report generated", f.ToSlice()...)
}

// LogLoad records one table reloaded by the ETL.
func (sl *StructuredLogger) LogLoad(ctx context.Context, runID, tabela, origem string, linhas, descartadas int64, elapsed time.Duration) {
	f := NewFields().
		WithLoad(runID, tabela, linhas).
		WithOperation(OpLoad)
	f[FieldArquivo] = origem
	f["descartadas"] = descartadas
	f[FieldDuration] = elapsed.Milliseconds()
	sl.logger.InfoContext(ctx, "Table loaded", f.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
