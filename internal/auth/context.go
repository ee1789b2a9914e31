package auth

import "context"

type contextKey struct{}

// Identity is the caller behind a request.
type Identity struct {
	KeyID     int64
	KeyName   string
	KeyPrefix string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// KeyName returns the calling key's name, or "anonymous" when the request
// was not authenticated.
func KeyName(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return "anonymous"
	}
	return id.KeyName
}

func Authenticated(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}
