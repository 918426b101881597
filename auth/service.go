package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/config"
	"github.com/user/foodies-go/db"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// AuthService orchestrates registration, login and session lifecycle over
// the user and session tables.
type AuthService struct {
	db         db.Querier
	codec      *TokenCodec
	authConfig config.AuthConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(pool db.Querier, codec *TokenCodec, authConfig config.AuthConfig) *AuthService {
	return &AuthService{
		db:         pool,
		codec:      codec,
		authConfig: authConfig,
	}
}

// Register creates a new user plus an initial session and returns the signed
// bearer token. Fails with EMAIL_TAKEN when the email is already registered.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, sessionData map[string]any) (*AuthResponse, error) {
	var existingID string
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, req.Email).Scan(&existingID)
	if err == nil {
		return nil, apperror.NewConflictError("email is already registered", nil).WithCode("EMAIL_TAKEN")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewDatabaseError("failed to check existing user", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.authConfig.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: string(hashedPassword),
	}
	if req.Avatar != "" {
		user.Avatar = &req.Avatar
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password, avatar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		user.ID, user.Name, user.Email, user.HashedPassword, user.Avatar,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		// The early existence check is racy; the unique index is what
		// actually guarantees the invariant.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, apperror.NewConflictError("email is already registered", nil).WithCode("EMAIL_TAKEN")
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}

	return s.startSession(ctx, user, sessionData)
}

// Login authenticates a user by email and password and opens a new session.
// An unknown email and a wrong password surface the same INVALID_CREDENTIALS
// error so callers can not probe which check failed. There is no limit on
// concurrent sessions per user.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, sessionData map[string]any) (*AuthResponse, error) {
	user, err := s.getUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewAuthError("invalid email or password", nil).WithCode("INVALID_CREDENTIALS")
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuthError("invalid email or password", nil).WithCode("INVALID_CREDENTIALS")
	}

	return s.startSession(ctx, user, sessionData)
}

// Logout closes the session. It is idempotent: an unknown or already closed
// session id is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET closed = true, updated_at = now()
		WHERE id = $1 AND closed = false`, sessionID)
	if err != nil {
		return apperror.NewDatabaseError("failed to close session", err)
	}
	return nil
}

// ResolveOpenSession looks up a session that is still open (closed = false)
// together with its owning user. A missing or closed session fails with the
// same UNAUTHORIZED error; store faults propagate as database errors.
func (s *AuthService) ResolveOpenSession(ctx context.Context, sessionID string) (*Session, error) {
	session := &Session{User: &User{}}
	err := s.db.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.data, s.closed, s.created_at, s.updated_at,
		       u.id, u.name, u.email, u.avatar, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.closed = false`, sessionID,
	).Scan(
		&session.ID, &session.UserID, &session.Data, &session.Closed,
		&session.CreatedAt, &session.UpdatedAt,
		&session.User.ID, &session.User.Name, &session.User.Email,
		&session.User.Avatar, &session.User.CreatedAt, &session.User.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewAuthError("session is not active", nil)
		}
		return nil, apperror.NewDatabaseError("failed to resolve session", err)
	}
	return session, nil
}

// ListUserSessions returns the caller's sessions, newest first.
func (s *AuthService) ListUserSessions(ctx context.Context, userID string) ([]SessionResponse, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, data, closed, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list sessions", err)
	}
	defer rows.Close()

	sessions := []SessionResponse{}
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Data, &session.Closed, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan session", err)
		}
		sessions = append(sessions, toSessionResponse(&session))
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read sessions", err)
	}
	return sessions, nil
}

// CloseUserSession closes one of the caller's own sessions (user-initiated
// revocation). Fails with SESSION_NOT_FOUND when the caller owns no session
// with that id; closing an already closed session succeeds silently.
func (s *AuthService) CloseUserSession(ctx context.Context, userID, sessionID string) error {
	var closed bool
	err := s.db.QueryRow(ctx,
		`SELECT closed FROM sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	).Scan(&closed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("session not found", nil).WithCode("SESSION_NOT_FOUND")
		}
		return apperror.NewDatabaseError("failed to find session", err)
	}
	if closed {
		return nil
	}
	return s.Logout(ctx, sessionID)
}

// startSession persists a new session row for the user and issues the
// bearer token bound to it.
func (s *AuthService) startSession(ctx context.Context, user *User, sessionData map[string]any) (*AuthResponse, error) {
	sessionID := uuid.NewString()
	if sessionData == nil {
		sessionData = map[string]any{}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, data, closed)
		VALUES ($1, $2, $3, false)`,
		sessionID, user.ID, sessionData)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create session", err)
	}

	token, err := s.codec.Issue(user.ID, sessionID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{
		User:      toUserResponse(user),
		Token:     token,
		SessionID: sessionID,
	}, nil
}

func (s *AuthService) getUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.QueryRow(ctx, `
		SELECT id, name, email, password, avatar, created_at, updated_at
		FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
