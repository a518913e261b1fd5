package logger

import "context"

// Well-known structured log field keys.
const (
	KeyTraceID = "trace_id"
	KeyCID     = "cid"
	KeyProfile = "profile_id"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds per-flow correlation fields threaded through the
// *Ctx logging entry points: once attached to a context.Context with
// WithContext, every *Ctx log line given that context carries its CID
// and trace ID without the call site repeating them. pkg/rohc does not
// attach one.
type LogContext struct {
	TraceID   string
	CID       uint16
	ProfileID string
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}
