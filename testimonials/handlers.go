package testimonials

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/auth"
)

// Handlers wraps the testimonial Service with HTTP handlers.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleGetTestimonials godoc
// @Summary List testimonials
// @Description All testimonials with their authors, newest first.
// @Tags testimonials
// @Produce json
// @Success 200 {array} testimonials.TestimonialResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /testimonials [get]
func (h *Handlers) HandleGetTestimonials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetTestimonials(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetTestimonial godoc
// @Summary Testimonial detail
// @Description One testimonial by id, with its author.
// @Tags testimonials
// @Produce json
// @Param testimonialId path string true "Testimonial id"
// @Success 200 {object} testimonials.TestimonialResponse
// @Failure 404 {object} apperror.ErrorResponse "Testimonial not found"
// @Router /testimonials/{testimonialId} [get]
func (h *Handlers) HandleGetTestimonial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetTestimonial(r.Context(), chi.URLParam(r, "testimonialId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetUserTestimonials godoc
// @Summary User's testimonials
// @Description Testimonials authored by the given user, newest first.
// @Tags testimonials
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {array} testimonials.TestimonialResponse
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /users/{userId}/testimonials [get]
func (h *Handlers) HandleGetUserTestimonials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetUserTestimonials(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleCreateTestimonial godoc
// @Summary Create testimonial
// @Description Stores a testimonial authored by the caller.
// @Tags testimonials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param testimonial body testimonials.CreateTestimonialRequest true "Testimonial text"
// @Success 201 {object} testimonials.TestimonialResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing text"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /testimonials [post]
func (h *Handlers) HandleCreateTestimonial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		var req CreateTestimonialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		resp, err := h.service.CreateTestimonial(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, resp)
	}
}

// HandleUpdateTestimonial godoc
// @Summary Update testimonial
// @Description Rewrites a testimonial's text. Owner only.
// @Tags testimonials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param testimonialId path string true "Testimonial id"
// @Param testimonial body testimonials.CreateTestimonialRequest true "New text"
// @Success 200 {object} testimonials.TestimonialResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} apperror.ErrorResponse "Not the owner"
// @Failure 404 {object} apperror.ErrorResponse "Testimonial not found"
// @Router /testimonials/{testimonialId} [put]
func (h *Handlers) HandleUpdateTestimonial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		var req CreateTestimonialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		resp, err := h.service.UpdateTestimonial(r.Context(), chi.URLParam(r, "testimonialId"), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleDeleteTestimonial godoc
// @Summary Delete testimonial
// @Description Removes a testimonial. Owner only.
// @Tags testimonials
// @Produce json
// @Security BearerAuth
// @Param testimonialId path string true "Testimonial id"
// @Success 204 "Testimonial deleted"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} apperror.ErrorResponse "Not the owner"
// @Failure 404 {object} apperror.ErrorResponse "Testimonial not found"
// @Router /testimonials/{testimonialId} [delete]
func (h *Handlers) HandleDeleteTestimonial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.DeleteTestimonial(r.Context(), chi.URLParam(r, "testimonialId"), userID); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
