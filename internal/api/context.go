package api

import "context"

type contextKey string

const sessionContextKey contextKey = "gateway_session"

// SessionFromContext extracts the gateway session ID from context
func SessionFromContext(ctx context.Context) string {
	id, ok := ctx.Value(sessionContextKey).(string)
	if !ok {
		return ""
	}
	return id
}

// ContextWithSession adds the gateway session ID to context
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionID)
}
