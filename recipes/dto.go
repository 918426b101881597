package recipes

import "time"

// IngredientRef identifies an existing ingredient to link to a recipe, with
// an optional free-form measure ("2 tbsp").
type IngredientRef struct {
	ID      string  `json:"id"`
	Measure *string `json:"measure,omitempty"`
}

// CreateRecipeInput is the service-level input for recipe creation. The
// image arrives as a temp-file path produced by the upload intake.
type CreateRecipeInput struct {
	OwnerID      string
	Name         string
	Description  string
	Instructions string
	Time         int
	CategoryID   string
	AreaID       string
	Ingredients  []IngredientRef
	ImgTempPath  string
}

// RefResponse is the id/name pair used for category and area lookups
// embedded in a recipe.
type RefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorResponse is the public shape of a recipe's owner.
type AuthorResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// RecipeIngredientResponse is one linked ingredient with its per-link measure.
type RecipeIngredientResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Img     *string `json:"img"`
	Measure *string `json:"measure"`
}

// RecipeResponse is the full public representation of a recipe with its
// associations eagerly included.
type RecipeResponse struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Description  string                     `json:"description"`
	Instructions string                     `json:"instructions"`
	Time         int                        `json:"time"`
	Img          string                     `json:"img"`
	Category     RefResponse                `json:"category"`
	Area         RefResponse                `json:"area"`
	Owner        AuthorResponse             `json:"owner"`
	Ingredients  []RecipeIngredientResponse `json:"ingredients"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// PagedRecipesResponse carries one page of recipes plus the total matching
// count (before pagination) so clients can compute total pages.
type PagedRecipesResponse struct {
	Count int64            `json:"count"`
	Rows  []RecipeResponse `json:"rows"`
}

// RecipeDetailResponse augments a recipe with its derived favorite count and
// the caller-relative favorite flag.
type RecipeDetailResponse struct {
	RecipeResponse
	FavoritesCount int64 `json:"favorites_count"`
	IsFavorite     bool  `json:"is_favorite"`
}

// PopularRecipeResponse is one entry of the popularity ranking.
type PopularRecipeResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Time           int            `json:"time"`
	Img            string         `json:"img"`
	Author         AuthorResponse `json:"author"`
	FavoritesCount int64          `json:"favorites_count"`
	IsFavorite     bool           `json:"is_favorite"`
}

// FavoriteRecipeResponse is one row of the caller's favorites listing.
// IsFavorite is always true by construction.
type FavoriteRecipeResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Time           int            `json:"time"`
	ImageURL       string         `json:"image_url"`
	Author         AuthorResponse `json:"author"`
	FavoritesCount int64          `json:"favorites_count"`
	IsFavorite     bool           `json:"is_favorite"`
}

// PagedFavoritesResponse carries one page of the caller's favorites plus the
// total favorite count.
type PagedFavoritesResponse struct {
	Count int64                    `json:"count"`
	Rows  []FavoriteRecipeResponse `json:"rows"`
}

// FavoriteStatusResponse reports the favorite flag after a toggle.
type FavoriteStatusResponse struct {
	IsFavorite bool `json:"is_favorite"`
}
