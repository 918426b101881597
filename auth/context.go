package auth

import "context"

// contextKey is a private type for context keys so they can not collide with
// keys defined in other packages.
type contextKey string

const sessionContextKey contextKey = "auth_session"

// NewContextWithSession returns a child context carrying the resolved
// session (including its owning user).
func NewContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session placed by the middleware. The
// second return value reports whether a session was present.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	return session, ok
}

// UserIDFromContext is a convenience accessor for the authenticated user's
// id. It returns "" and false for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || session.User == nil {
		return "", false
	}
	return session.User.ID, true
}
