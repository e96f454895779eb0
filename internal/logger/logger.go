package logger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	return Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}
}

// WithConnection returns the base fields for a socket connection
func WithConnection(connID, remoteAddr string) Fields {
	return Fields{
		"conn_id":     connID,
		"remote_addr": remoteAddr,
	}
}

// Merge returns a copy of f with extra added on top
func (f Fields) Merge(extra Fields) Fields {
	merged := make(Fields, len(f)+len(extra))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

type fieldsContextKey struct{}

// ContextWithFields attaches base log fields to ctx
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	return context.WithValue(ctx, fieldsContextKey{}, fields)
}

// FieldsFromContext returns a copy of the fields attached to ctx, or empty fields
func FieldsFromContext(ctx context.Context) Fields {
	fields, _ := ctx.Value(fieldsContextKey{}).(Fields)
	return fields.Merge(nil)
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	InfoCtx(context.Background(), msg, fields)
}

// InfoCtx is Info with breadcrumbs recorded on the hub carried by ctx
func InfoCtx(ctx context.Context, msg string, fields Fields) {
	log.Printf("[INFO] %s %v", msg, formatFields(fields))
	addBreadcrumb(hubFromContext(ctx), "info", sentry.LevelInfo, msg, fields)
}

// Error logs an error message with structured fields and sends to Sentry
func Error(msg string, err error, fields Fields) {
	ErrorCtx(context.Background(), msg, err, fields)
}

// ErrorCtx is Error reported through the hub carried by ctx
func ErrorCtx(ctx context.Context, msg string, err error, fields Fields) {
	log.Printf("[ERROR] %s: %v %v", msg, err, formatFields(fields))

	hub := hubFromContext(ctx)
	if hub.Client() == nil || err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range fields {
			scope.SetContext(key, map[string]interface{}{
				"value": value,
			})
		}

		// Tags for filtering in Sentry
		for _, tag := range []string{"request_id", "conn_id", "backend", "kind"} {
			if value, ok := fields[tag].(string); ok {
				scope.SetTag(tag, value)
			}
		}

		hub.CaptureException(err)
	})
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	WarnCtx(context.Background(), msg, fields)
}

// WarnCtx is Warn with breadcrumbs recorded on the hub carried by ctx
func WarnCtx(ctx context.Context, msg string, fields Fields) {
	log.Printf("[WARN] %s %v", msg, formatFields(fields))
	addBreadcrumb(hubFromContext(ctx), "warning", sentry.LevelWarning, msg, fields)
}

// Debug logs a debug message with structured fields
func Debug(msg string, fields Fields) {
	DebugCtx(context.Background(), msg, fields)
}

// DebugCtx is Debug with breadcrumbs recorded on the hub carried by ctx
func DebugCtx(ctx context.Context, msg string, fields Fields) {
	log.Printf("[DEBUG] %s %v", msg, formatFields(fields))
	addBreadcrumb(hubFromContext(ctx), "debug", sentry.LevelDebug, msg, fields)
}

// hubFromContext falls back to the process hub when ctx carries none
func hubFromContext(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}

// LogGenerationRequest logs one provider call with its duration and token usage
func LogGenerationRequest(
	ctx context.Context, backend, model string, duration time.Duration, tokenUsage map[string]int64, fields Fields,
) {
	fields = fields.Merge(Fields{
		"backend":       backend,
		"model":         model,
		"duration_ms":   duration.Milliseconds(),
		"input_tokens":  tokenUsage["input_tokens"],
		"output_tokens": tokenUsage["output_tokens"],
		"total_tokens":  tokenUsage["total_tokens"],
	})

	InfoCtx(ctx, "Provider call completed", fields)

	if span := sentry.SpanFromContext(ctx); span != nil {
		span.SetData("tokens", tokenUsage)
	}
}

func addBreadcrumb(hub *sentry.Hub, kind string, level sentry.Level, msg string, fields Fields) {
	if hub.Client() != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    level,
		}, nil)
	}
}

// formatFields converts Fields to a readable string with stable key order
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(formatValue(fields[k]))
	}
	b.WriteString("}")
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		result[k] = v
	}
	return result
}
