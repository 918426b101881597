package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/config"
)

func newTestService(t *testing.T) (*AuthService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	cfg := config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	return NewAuthService(mock, NewTokenCodec(cfg), cfg), mock
}

func TestRegisterEmailTaken(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE email = $1`)).
		WithArgs("taken@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-user"))

	_, err := service.Register(context.Background(), RegisterRequest{
		Name:     "Someone",
		Email:    "taken@example.com",
		Password: "password",
	}, nil)

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, "EMAIL_TAKEN"))
	// No insert may happen once the email is known to be taken.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	service, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE email = $1`)).
		WithArgs("new@example.com").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(pgxmock.AnyArg(), "New User", "new@example.com", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	resp, err := service.Register(context.Background(), RegisterRequest{
		Name:     "New User",
		Email:    "new@example.com",
		Password: "password",
	}, map[string]any{"ip": "127.0.0.1"})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	service, mock := newTestService(t)

	// Unknown email.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, unknownErr := service.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	}, nil)
	require.Error(t, unknownErr)
	assert.True(t, apperror.HasCode(unknownErr, "INVALID_CREDENTIALS"))

	// Known email, wrong password.
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("someone@example.com").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "name", "email", "password", "avatar", "created_at", "updated_at"},
		).AddRow("user-1", "Someone", "someone@example.com", string(hash), nil, now, now))

	_, wrongErr := service.Login(context.Background(), LoginRequest{
		Email:    "someone@example.com",
		Password: "wrong-password",
	}, nil)
	require.Error(t, wrongErr)
	assert.True(t, apperror.HasCode(wrongErr, "INVALID_CREDENTIALS"))

	// Both failures must present identically to the caller.
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutIsIdempotent(t *testing.T) {
	service, mock := newTestService(t)

	// Already closed (or unknown): zero rows updated, still no error.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sessions SET closed = true`)).
		WithArgs("session-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := service.Logout(context.Background(), "session-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOpenSessionRejectsClosed(t *testing.T) {
	service, mock := newTestService(t)

	// A closed session never matches the closed = false predicate.
	mock.ExpectQuery(`FROM sessions s`).
		WithArgs("session-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := service.ResolveOpenSession(context.Background(), "session-1")
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestCloseUserSessionNotFound(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT closed FROM sessions WHERE id = $1 AND user_id = $2`)).
		WithArgs("session-1", "user-1").
		WillReturnError(pgx.ErrNoRows)

	err := service.CloseUserSession(context.Background(), "user-1", "session-1")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, "SESSION_NOT_FOUND"))
}

func TestCloseUserSessionAlreadyClosed(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT closed FROM sessions WHERE id = $1 AND user_id = $2`)).
		WithArgs("session-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"closed"}).AddRow(true))

	err := service.CloseUserSession(context.Background(), "user-1", "session-1")
	assert.NoError(t, err)
	// No UPDATE may run for an already closed session.
	assert.NoError(t, mock.ExpectationsWereMet())
}
