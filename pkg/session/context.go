package session

import "context"

type contextKey string

const (
	publicKey  contextKey = "session.public"
	retriedKey contextKey = "session.retried"
)

// Public marks requests made with ctx as unauthenticated calls such as login
// and register. They never carry a token and never trigger a refresh.
func Public(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey, true)
}

// IsPublic reports whether ctx was marked with Public.
func IsPublic(ctx context.Context) bool {
	public, _ := ctx.Value(publicKey).(bool)
	return public
}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey).(bool)
	return retried
}
