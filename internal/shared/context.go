package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Identity describes the authenticated caller as seen by handlers.
type Identity struct {
	UserID    string
	SocietyID string
}

// IdentityFromContext derives the caller identity from the session, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return Identity{}, false
	}
	return Identity{UserID: sess.User(), SocietyID: sess.Society()}, true
}
