package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEvent is the application-level event of the exchange (VERSION, STOP, ECHO).
	FieldEvent = "event"
	// FieldRequestID is the id of the request envelope sent during the exchange.
	FieldRequestID = "request_id"
	// FieldURL is the daemon address a session connects to.
	FieldURL = "url"
	// FieldPID is the daemon process id reported by a stop response.
	FieldPID = "pid"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	eventKey
)

// WithExchange returns a context tagged with the request id and event of one exchange.
func WithExchange(ctx context.Context, requestID, event string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if event != "" {
		ctx = context.WithValue(ctx, eventKey, event)
	}
	return ctx
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	if event, ok := ctx.Value(eventKey).(string); ok && event != "" {
		fields = append(fields, slog.String(FieldEvent, event))
	}
	return fields
}

// WithContext returns logger enriched with the exchange fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
