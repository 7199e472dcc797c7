package auth

import "context"

type identityContextKey struct{}

// Identity is the authenticated caller as seen by the engine routes.
// UserID keys the caller's deck, quota and match state.
type Identity struct {
	UserID string
	SID    string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
