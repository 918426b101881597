// Package auth is responsible for authentication and authorization:
// registration, login, bearer-token issuance and verification, session
// lifecycle, and the request middleware that gates protected routes.
package auth

import "time"

// User represents a user row. HashedPassword never crosses the service
// boundary: it carries `json:"-"` and the DTO mappers skip it entirely.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Avatar         *string   `json:"avatar"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session represents one authenticated login. The id doubles as the token's
// session claim, so a session can be revoked independently of token expiry.
// Data is an opaque bag of contextual metadata (IP, user agent, caller
// extras) merged at creation and never mutated afterwards. Closed is a
// monotonic false-to-true flag: a closed session is never reopened and
// authentication only accepts sessions where it is still false.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data"`
	Closed    bool           `json:"closed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	User *User `json:"user,omitempty"`
}
