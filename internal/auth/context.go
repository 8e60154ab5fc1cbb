// Package auth carries the request-scoped identity (acting user, client IP)
// that the write path stamps on audit records. Session handling itself lives
// in the web layer.
package auth

import "context"

type ctxKey string

const (
	userIDCtxKey = ctxKey("userID")
	ipCtxKey     = ctxKey("ip")
)

// WithUserID stores the acting user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// WithoutActor masks any acting user in ctx, so writes made with the result
// are recorded as system actions.
func WithoutActor(ctx context.Context) context.Context {
	return context.WithValue(ctx, userIDCtxKey, uint(0))
}

// UserIDFromContext extracts the acting user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(userIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// ActorFromContext returns the acting user id as a pointer, nil for system actions.
func ActorFromContext(ctx context.Context) *uint {
	if id, ok := UserIDFromContext(ctx); ok {
		return &id
	}
	return nil
}

// WithIP stores the best-effort client address.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipCtxKey, ip)
}

// IPFromContext returns the client address, "" when unknown.
func IPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ipCtxKey).(string)
	return ip
}
