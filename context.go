package goSecretQ

import "context"

type clientIPContextKey struct{}
type realmContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRealm attaches the realm to ctx for audit events emitted outside a
// step call (credential management).
func WithRealm(ctx context.Context, realm string) context.Context {
	return context.WithValue(ctx, realmContextKey{}, realm)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func realmFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	realm, _ := ctx.Value(realmContextKey{}).(string)
	return realm
}
