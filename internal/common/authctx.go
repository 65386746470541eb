package common

import "context"

type ctxKey string

const (
	sessionIDKey ctxKey = "session/id"
	tokenKey     ctxKey = "auth/token"
	userIDKey    ctxKey = "auth/user-id"
)

// WithSessionID stores the storefront session identifier on ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the storefront session identifier from ctx.
func SessionID(ctx context.Context) (string, bool) {
	return stringValue(ctx, sessionIDKey)
}

// WithToken stores the backend bearer token on ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token extracts the backend bearer token from ctx. An empty token reports false.
func Token(ctx context.Context) (string, bool) {
	token, ok := stringValue(ctx, tokenKey)
	return token, ok && token != ""
}

// WithUserID stores the authenticated user identifier on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from ctx.
func UserID(ctx context.Context) (string, bool) {
	return stringValue(ctx, userIDKey)
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok
}
