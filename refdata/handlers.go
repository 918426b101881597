package refdata

import (
	"net/http"

	"github.com/user/foodies-go/auth"
)

// Handlers wraps the reference-data Service with HTTP handlers.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleGetCategories godoc
// @Summary List categories
// @Tags reference-data
// @Produce json
// @Success 200 {array} refdata.CategoryResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /categories [get]
func (h *Handlers) HandleGetCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.service.GetCategories(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, categories)
	}
}

// HandleGetAreas godoc
// @Summary List areas
// @Tags reference-data
// @Produce json
// @Success 200 {array} refdata.AreaResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /areas [get]
func (h *Handlers) HandleGetAreas() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		areas, err := h.service.GetAreas(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, areas)
	}
}

// HandleGetIngredients godoc
// @Summary List ingredients
// @Tags reference-data
// @Produce json
// @Success 200 {array} refdata.IngredientResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /ingredients [get]
func (h *Handlers) HandleGetIngredients() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingredients, err := h.service.GetIngredients(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, ingredients)
	}
}
