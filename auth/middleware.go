package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/user/foodies-go/apperror"
)

// SessionResolver looks up a session that is still open. AuthService is the
// production implementation; tests substitute a stub.
type SessionResolver interface {
	ResolveOpenSession(ctx context.Context, sessionID string) (*Session, error)
}

// extractBearer pulls the token out of an "Authorization: Bearer <token>"
// header. It returns false for a missing or malformed header.
func extractBearer(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// resolveRequestSession runs the full authentication chain for a request:
// bearer extraction, token verification, and open-session lookup. Every
// authentication failure is reported as the same UNAUTHORIZED error; a token
// for a logged-out session is rejected even if it has not yet expired.
// Store faults come back unchanged so the caller can surface a 500.
func resolveRequestSession(r *http.Request, codec *TokenCodec, sessions SessionResolver) (*Session, error) {
	tokenString, ok := extractBearer(r)
	if !ok {
		return nil, apperror.NewAuthError("authorization token is required", nil)
	}

	claims, err := codec.Verify(tokenString)
	if err != nil {
		return nil, apperror.NewAuthError("invalid or expired token", err)
	}

	session, err := sessions.ResolveOpenSession(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RequireAuth returns middleware that rejects requests lacking a valid
// bearer token bound to an open session. On success the resolved session is
// attached to the request context for downstream handlers.
func RequireAuth(codec *TokenCodec, sessions SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := resolveRequestSession(r, codec, sessions)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContextWithSession(r.Context(), session)))
		})
	}
}

// OptionalAuth returns middleware for endpoints where identity is best
// effort: a valid token attaches the session, and any failure (absent
// header, bad token, closed session, even a store fault) degrades to an
// anonymous request instead of failing it.
func OptionalAuth(codec *TokenCodec, sessions SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := resolveRequestSession(r, codec, sessions); err == nil {
				r = r.WithContext(NewContextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}
