package logging

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type workflowCtxKey struct{}
type attemptCtxKey struct{}
type requestCtxKey struct{}
type toolCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := WorkflowIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("workflow.id", id))
	}
	if n := AttemptFromContext(ctx); n > 0 {
		fields = append(fields, zap.Int("attempt", n))
	}
	if tool := ToolFromContext(ctx); tool != "" {
		fields = append(fields, zap.String("tool", tool))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

// WithWorkflowID tags ctx with a workflow id.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workflowCtxKey{}, id)
}

// WorkflowIDFromContext returns the workflow id, or "".
func WorkflowIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workflowCtxKey{}).(string)
	return id
}

// WithAttempt tags ctx with an orchestrator attempt number (1-based).
func WithAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptCtxKey{}, n)
}

// AttemptFromContext returns the attempt number, or 0.
func AttemptFromContext(ctx context.Context) int {
	n, _ := ctx.Value(attemptCtxKey{}).(int)
	return n
}

// WithTool tags ctx with the tool a hook is running for.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, toolCtxKey{}, tool)
}

// ToolFromContext returns the tool name, or "".
func ToolFromContext(ctx context.Context) string {
	tool, _ := ctx.Value(toolCtxKey{}).(string)
	return tool
}

// WithRequestID tags ctx with a request id. Overly long ids are truncated.
func WithRequestID(ctx context.Context, id string) context.Context {
	if len(id) > 128 {
		id = id[:128]
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger from context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Nop()
}

// AttemptLabel formats an attempt as "n/max" for log fields.
func AttemptLabel(n, max int) string {
	return strconv.Itoa(n) + "/" + strconv.Itoa(max)
}
