package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/foodies-go/apperror"
)

// Handlers wraps the AuthService with HTTP handlers.
type Handlers struct {
	service *AuthService
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *AuthService) *Handlers {
	return &Handlers{service: service}
}

// registerBody is the wire shape of the register endpoint: the credential
// fields plus optional caller-supplied session metadata.
type registerBody struct {
	RegisterRequest
	SessionData map[string]any `json:"session_data,omitempty"`
}

type loginBody struct {
	LoginRequest
	SessionData map[string]any `json:"session_data,omitempty"`
}

// requestSessionData merges request-derived metadata with caller-supplied
// extras. The result is stored opaquely on the session row.
func requestSessionData(r *http.Request, extras map[string]any) map[string]any {
	data := map[string]any{
		"ip":         r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	for k, v := range extras {
		data[k] = v
	}
	return data
}

// HandleRegister godoc
// @Summary User registration
// @Description Registers a new user and opens an initial session.
// @Tags auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "User registration details"
// @Success 201 {object} auth.AuthResponse "User created, session opened"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input or missing fields"
// @Failure 409 {object} apperror.ErrorResponse "Email already registered"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if req.Name == "" || req.Email == "" || req.Password == "" {
			WriteError(w, r, apperror.NewBadRequestError("name, email, and password are required", nil))
			return
		}

		resp, err := h.service.Register(r.Context(), req.RegisterRequest, requestSessionData(r, req.SessionData))
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

// HandleLogin godoc
// @Summary User login
// @Description Authenticates a user and opens a new session.
// @Tags auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "User login credentials"
// @Success 200 {object} auth.AuthResponse "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input or missing fields"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if req.Email == "" || req.Password == "" {
			WriteError(w, r, apperror.NewBadRequestError("email and password are required", nil))
			return
		}

		resp, err := h.service.Login(r.Context(), req.LoginRequest, requestSessionData(r, req.SessionData))
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleLogout godoc
// @Summary User logout
// @Description Closes the session bound to the presented token. Idempotent.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 204 "Session closed"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.Logout(r.Context(), session.ID); err != nil {
			WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListSessions godoc
// @Summary List own sessions
// @Description Lists the caller's sessions, newest first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} auth.SessionResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /users/me/sessions [get]
func (h *Handlers) HandleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		sessions, err := h.service.ListUserSessions(r.Context(), userID)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, sessions)
	}
}

// HandleCloseSession godoc
// @Summary Revoke a session
// @Description Closes one of the caller's sessions by id.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Success 204 "Session closed"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "Session not found"
// @Router /users/me/sessions/{sessionId} [delete]
func (h *Handlers) HandleCloseSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.CloseUserSession(r.Context(), userID, chi.URLParam(r, "sessionId")); err != nil {
			WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSON serializes data to JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteJSON is the shared success-response helper used by the other feature
// packages' handlers.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data)
}

// WriteError writes a standardized error response. Errors that are not
// *AppError are wrapped as a generic internal error so nothing internal
// leaks to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
