package core

import "context"

type contextKey string

const ctxKeyOrigin contextKey = "origin"

// Origin identifies who started an operation. It is attached to the
// operation's log lines.
type Origin struct {
	// Surface is "http" or "cli".
	Surface   string
	IPAddress string
	UserAgent string
}

// ContextWithOrigin attaches o to ctx.
func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, o)
}

// OriginFromContext extracts the Origin set by ContextWithOrigin.
func OriginFromContext(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(ctxKeyOrigin).(Origin)
	return o, ok
}

// originFields returns slog key/value pairs describing ctx's origin.
func originFields(ctx context.Context) []any {
	o, ok := OriginFromContext(ctx)
	if !ok {
		return nil
	}
	fields := []any{"surface", o.Surface}
	if o.IPAddress != "" {
		fields = append(fields, "ip", o.IPAddress)
	}
	if o.UserAgent != "" {
		fields = append(fields, "user_agent", o.UserAgent)
	}
	return fields
}
