package recipes

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/auth"
)

const (
	defaultPageSize    = 10
	defaultPopularSize = 4
	maxUploadBytes     = 10 << 20
)

// allowedImageTypes is the multipart content-type allow-list for recipe
// image uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Uploader receives multipart uploads into temporary storage and returns
// the temp path the service later relocates.
type Uploader interface {
	SaveUpload(file multipart.File, header *multipart.FileHeader) (string, error)
}

// Handlers wraps the recipe Service with HTTP handlers.
type Handlers struct {
	service *Service
	uploads Uploader
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, uploads Uploader) *Handlers {
	return &Handlers{service: service, uploads: uploads}
}

// pagination reads page/limit query params with defaults and converts them
// to limit/offset. Page numbering is one-based.
func pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	return limit, (page - 1) * limit
}

// callerID returns the authenticated user's id, or "" for anonymous
// requests behind optional auth.
func callerID(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

// HandleGetAllRecipes godoc
// @Summary List recipes
// @Description Paginated recipe search, filterable by category, area, ingredient, and owner. Newest first.
// @Tags recipes
// @Produce json
// @Param category query string false "Category id"
// @Param area query string false "Area id"
// @Param ingredient query string false "Ingredient id"
// @Param owner query string false "Owner user id"
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} recipes.PagedRecipesResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /recipes [get]
func (h *Handlers) HandleGetAllRecipes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filters := Filters{
			CategoryID:   q.Get("category"),
			AreaID:       q.Get("area"),
			IngredientID: q.Get("ingredient"),
			OwnerID:      q.Get("owner"),
		}
		limit, offset := pagination(r)

		resp, err := h.service.GetAllRecipes(r.Context(), filters, limit, offset)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetPopularRecipes godoc
// @Summary Popular recipes
// @Description Recipes ranked by favorite count. The limit is capped server-side.
// @Tags recipes
// @Produce json
// @Param limit query int false "Number of recipes"
// @Success 200 {array} recipes.PopularRecipeResponse
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /recipes/popular [get]
func (h *Handlers) HandleGetPopularRecipes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit == 0 {
			limit = defaultPopularSize
		}

		resp, err := h.service.GetPopularRecipes(r.Context(), limit, callerID(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetRecipe godoc
// @Summary Recipe detail
// @Description One recipe with its category, area, owner, ingredients, and favorite data.
// @Tags recipes
// @Produce json
// @Param recipeId path string true "Recipe id"
// @Success 200 {object} recipes.RecipeDetailResponse
// @Failure 404 {object} apperror.ErrorResponse "Recipe not found"
// @Router /recipes/{recipeId} [get]
func (h *Handlers) HandleGetRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.service.GetRecipe(r.Context(), chi.URLParam(r, "recipeId"), callerID(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetOwnRecipes godoc
// @Summary Own recipes
// @Description All recipes owned by the caller, newest first.
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Success 200 {array} recipes.RecipeResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /recipes/own [get]
func (h *Handlers) HandleGetOwnRecipes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.GetOwnRecipes(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleCreateRecipe godoc
// @Summary Create recipe
// @Description Creates a recipe from a multipart form. The image file goes in the "img" field; "ingredients" is a JSON array of {id, measure}.
// @Tags recipes
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param img formData file true "Recipe image (jpeg, png, or webp)"
// @Param name formData string true "Recipe name"
// @Param description formData string false "Short description"
// @Param instructions formData string false "Preparation instructions"
// @Param time formData int true "Cooking time in minutes"
// @Param categoryId formData string true "Category id"
// @Param areaId formData string true "Area id"
// @Param ingredients formData string false "Ingredient links as JSON"
// @Success 201 {object} recipes.RecipeResponse
// @Failure 400 {object} apperror.ErrorResponse "Validation failure"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /recipes [post]
func (h *Handlers) HandleCreateRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid multipart form: "+err.Error(), nil))
			return
		}

		input, err := h.readCreateForm(r, userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		resp, err := h.service.CreateRecipe(r.Context(), *input)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, resp)
	}
}

// readCreateForm assembles CreateRecipeInput from the parsed multipart
// form. A missing image file is not an error here; the service reports it
// as IMAGE_REQUIRED so the validation ordering stays in one place.
func (h *Handlers) readCreateForm(r *http.Request, userID string) (*CreateRecipeInput, error) {
	input := CreateRecipeInput{
		OwnerID:      userID,
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		Instructions: r.FormValue("instructions"),
		CategoryID:   r.FormValue("categoryId"),
		AreaID:       r.FormValue("areaId"),
	}

	if raw := r.FormValue("time"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperror.NewValidationError("time must be a positive number", nil).WithCode("INVALID_TIME")
		}
		input.Time = parsed
	}

	if raw := r.FormValue("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Ingredients); err != nil {
			return nil, apperror.NewBadRequestError("ingredients must be a JSON array", nil)
		}
	}

	file, header, err := r.FormFile("img")
	if err == nil {
		defer file.Close()
		if !allowedImageTypes[header.Header.Get("Content-Type")] {
			return nil, apperror.NewBadRequestError("image must be jpeg, png, or webp", nil)
		}
		tempPath, err := h.uploads.SaveUpload(file, header)
		if err != nil {
			return nil, apperror.NewInternalError("failed to store upload", err)
		}
		input.ImgTempPath = tempPath
	}
	return &input, nil
}

// HandleDeleteRecipe godoc
// @Summary Delete own recipe
// @Description Deletes a recipe the caller owns, including its favorite marks and ingredient links.
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Param recipeId path string true "Recipe id"
// @Success 204 "Recipe deleted"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "Recipe not found"
// @Router /recipes/{recipeId} [delete]
func (h *Handlers) HandleDeleteRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.DeleteOwnRecipe(r.Context(), chi.URLParam(r, "recipeId"), userID); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetFavorites godoc
// @Summary Favorite recipes
// @Description The caller's favorite recipes, most recently favorited first.
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} recipes.PagedFavoritesResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Router /recipes/favorites [get]
func (h *Handlers) HandleGetFavorites() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}
		limit, offset := pagination(r)

		resp, err := h.service.GetFavoriteRecipes(r.Context(), userID, limit, offset)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleAddFavorite godoc
// @Summary Favorite a recipe
// @Description Marks a recipe as a favorite. Repeating the call is a no-op.
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Param recipeId path string true "Recipe id"
// @Success 200 {object} recipes.FavoriteStatusResponse
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "Recipe not found"
// @Router /recipes/{recipeId}/favorite [post]
func (h *Handlers) HandleAddFavorite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		resp, err := h.service.AddFavorite(r.Context(), userID, chi.URLParam(r, "recipeId"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleRemoveFavorite godoc
// @Summary Unfavorite a recipe
// @Description Removes a favorite mark. Removing an absent mark is a no-op.
// @Tags recipes
// @Produce json
// @Security BearerAuth
// @Param recipeId path string true "Recipe id"
// @Success 204 "Favorite removed"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "Recipe not found"
// @Router /recipes/{recipeId}/favorite [delete]
func (h *Handlers) HandleRemoveFavorite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no session in context", nil))
			return
		}

		if err := h.service.RemoveFavorite(r.Context(), userID, chi.URLParam(r, "recipeId")); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
