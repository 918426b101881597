package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/auth"
)

const maxAvatarBytes = 5 << 20

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Handlers wraps the user Service with HTTP handlers.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleGetCurrentUser godoc
// @Summary Current user profile
// @Description The caller's own profile with recipe, favorite, follower, and following counts.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} users.CurrentUserResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /users/me [get]
func (h *Handlers) HandleGetCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.GetCurrentUser(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetUser godoc
// @Summary Public user profile
// @Description Another user's public profile. Includes whether the caller follows them.
// @Tags users
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} users.ProfileResponse
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /users/{userId} [get]
func (h *Handlers) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, _ := auth.UserIDFromContext(r.Context())

		resp, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userId"), callerID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleFollowUser godoc
// @Summary Follow a user
// @Description Adds a follow edge from the caller to the target user. Re-following is a no-op.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User id to follow"
// @Success 200 {object} users.FollowStatusResponse
// @Failure 400 {object} apperror.ErrorResponse "Cannot follow yourself"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /users/{userId}/follow [post]
func (h *Handlers) HandleFollowUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.FollowUser(r.Context(), userID, chi.URLParam(r, "userId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleUnfollowUser godoc
// @Summary Unfollow a user
// @Description Removes the caller's follow edge to the target user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User id to unfollow"
// @Success 204 "Unfollowed"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "User not found or not followed"
// @Router /users/{userId}/follow [delete]
func (h *Handlers) HandleUnfollowUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.UnfollowUser(r.Context(), userID, chi.URLParam(r, "userId")); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetOwnFollowers godoc
// @Summary Own followers
// @Description Users following the caller, newest first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} users.FollowerResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /users/me/followers [get]
func (h *Handlers) HandleGetOwnFollowers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.GetFollowers(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetOwnFollowing godoc
// @Summary Own followings
// @Description Users the caller follows, newest first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} users.FollowerResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /users/me/following [get]
func (h *Handlers) HandleGetOwnFollowing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.GetFollowing(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetFollowers godoc
// @Summary List followers
// @Description Users following the given user, newest first.
// @Tags users
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {array} users.FollowerResponse
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /users/{userId}/followers [get]
func (h *Handlers) HandleGetFollowers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetFollowers(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetFollowing godoc
// @Summary List followings
// @Description Users the given user follows, newest first.
// @Tags users
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {array} users.FollowerResponse
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /users/{userId}/following [get]
func (h *Handlers) HandleGetFollowing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetFollowing(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleUpdateAvatar godoc
// @Summary Update avatar
// @Description Replaces the caller's avatar from a multipart "avatar" field.
// @Tags users
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image (jpeg, png, or webp)"
// @Success 200 {object} users.AvatarResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing or unsupported file"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /users/me/avatar [patch]
func (h *Handlers) HandleUpdateAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid multipart form: "+err.Error(), nil))
			return
		}
		file, header, err := r.FormFile("avatar")
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("avatar file is required", nil))
			return
		}
		defer file.Close()

		if !allowedAvatarTypes[header.Header.Get("Content-Type")] {
			auth.WriteError(w, r, apperror.NewBadRequestError("avatar must be jpeg, png, or webp", nil))
			return
		}

		resp, err := h.service.UpdateAvatar(r.Context(), userID, file, header)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}
