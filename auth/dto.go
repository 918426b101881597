// Data transfer objects for the auth endpoints.
package auth

import "time"

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Name     string `json:"name" example:"John Doe"`
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"strongpassword123"`
	Avatar   string `json:"avatar,omitempty" example:"/public/avatars/default.png"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"strongpassword123"`
}

// UserResponse is the public representation of a user. It enumerates exactly
// the fields exposed; the password hash is not among them.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse is returned on successful registration or login.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
}

// SessionResponse is the public representation of a session row. The data
// bag is echoed as stored; the bearer token itself is never persisted and
// never appears here.
type SessionResponse struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	Closed    bool           `json:"closed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// toUserResponse maps a user row to its public DTO.
func toUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// toSessionResponse maps a session row to its public DTO.
func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Data:      s.Data,
		Closed:    s.Closed,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
