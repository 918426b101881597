package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/foodies-go/apperror"
)

// stubResolver returns canned sessions keyed by id; unknown ids behave like
// closed or missing sessions.
type stubResolver struct {
	sessions map[string]*Session
	err      error
}

func (s *stubResolver) ResolveOpenSession(_ context.Context, sessionID string) (*Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperror.NewAuthError("session is not active", nil)
	}
	return session, nil
}

func openSession(userID, sessionID string) *Session {
	return &Session{
		ID:     sessionID,
		UserID: userID,
		User:   &User{ID: userID, Name: "Test", Email: "test@example.com"},
	}
}

func authedRequest(t *testing.T, codec *TokenCodec, userID, sessionID string) *http.Request {
	t.Helper()
	token, err := codec.Issue(userID, sessionID, "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// echoHandler records whether it ran and what identity it saw.
func echoHandler(called *bool, gotUserID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if userID, ok := UserIDFromContext(r.Context()); ok {
			*gotUserID = userID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthAcceptsOpenSession(t *testing.T) {
	codec := testCodec(time.Hour)
	resolver := &stubResolver{sessions: map[string]*Session{
		"session-1": openSession("user-1", "session-1"),
	}}

	var called bool
	var gotUserID string
	handler := RequireAuth(codec, resolver)(echoHandler(&called, &gotUserID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, codec, "user-1", "session-1"))

	assert.True(t, called)
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	codec := testCodec(time.Hour)
	resolver := &stubResolver{}

	var called bool
	var gotUserID string
	handler := RequireAuth(codec, resolver)(echoHandler(&called, &gotUserID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsMalformedHeader(t *testing.T) {
	codec := testCodec(time.Hour)
	resolver := &stubResolver{sessions: map[string]*Session{
		"session-1": openSession("user-1", "session-1"),
	}}

	var called bool
	var gotUserID string
	handler := RequireAuth(codec, resolver)(echoHandler(&called, &gotUserID))

	for _, header := range []string{"Bearer", "Token abc", "Bearer a b"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		handler.ServeHTTP(rec, req)

		assert.False(t, called, "header %q should not reach the handler", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthRejectsClosedSession(t *testing.T) {
	codec := testCodec(time.Hour)
	// Resolver knows no sessions, so even a valid unexpired token is
	// rejected once its session has been closed.
	resolver := &stubResolver{sessions: map[string]*Session{}}

	var called bool
	var gotUserID string
	handler := RequireAuth(codec, resolver)(echoHandler(&called, &gotUserID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, codec, "user-1", "session-1"))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthAttachesIdentity(t *testing.T) {
	codec := testCodec(time.Hour)
	resolver := &stubResolver{sessions: map[string]*Session{
		"session-1": openSession("user-1", "session-1"),
	}}

	var called bool
	var gotUserID string
	handler := OptionalAuth(codec, resolver)(echoHandler(&called, &gotUserID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, codec, "user-1", "session-1"))

	assert.True(t, called)
	assert.Equal(t, "user-1", gotUserID)
}

func TestOptionalAuthDegradesToAnonymous(t *testing.T) {
	codec := testCodec(time.Hour)

	cases := []struct {
		name     string
		resolver *stubResolver
		request  func(t *testing.T) *http.Request
	}{
		{
			name:     "no header",
			resolver: &stubResolver{},
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/", nil)
			},
		},
		{
			name:     "garbage token",
			resolver: &stubResolver{},
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Authorization", "Bearer garbage")
				return req
			},
		},
		{
			name:     "closed session",
			resolver: &stubResolver{sessions: map[string]*Session{}},
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, codec, "user-1", "session-1")
			},
		},
		{
			name:     "store fault",
			resolver: &stubResolver{err: apperror.NewDatabaseError("boom", nil)},
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, codec, "user-1", "session-1")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			var gotUserID string
			handler := OptionalAuth(codec, tc.resolver)(echoHandler(&called, &gotUserID))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tc.request(t))

			assert.True(t, called, "request must still reach the handler")
			assert.Empty(t, gotUserID, "no identity should be attached")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
