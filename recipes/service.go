// Package recipes implements the recipe aggregate: creation with image
// relocation and ingredient linkage, filtered/paginated retrieval with
// derived favorite counts, favorite toggling, and owner-scoped deletion.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/db"
)

const (
	// maxIngredients bounds how many ingredient links one recipe may carry.
	maxIngredients = 50
	// maxPopularLimit caps the popularity ranking page size.
	maxPopularLimit = 50
	// recipeImagesDir is the public subdirectory recipe images move into.
	recipeImagesDir = "recipes"
)

// FileMover is the filesystem collaborator the service relies on: existence
// checks for uploaded temp files, atomic relocation into public storage, and
// best-effort removal.
type FileMover interface {
	Exists(path string) bool
	MoveToPublic(tempPath, subdir string) (string, error)
	RemovePublic(publicPath string)
}

// Service provides recipe operations.
type Service struct {
	db    db.Querier
	files FileMover
}

// NewService creates a new recipe Service.
func NewService(pool db.Querier, files FileMover) *Service {
	return &Service{db: pool, files: files}
}

// Filters narrows GetAllRecipes. Empty fields are unset; set fields compose
// with AND semantics.
type Filters struct {
	CategoryID   string
	AreaID       string
	IngredientID string
	OwnerID      string
}

// CreateRecipe validates the input (fail fast, first violation wins),
// relocates the uploaded image into permanent storage, then creates the
// recipe row and its ingredient links in one transaction. The created recipe
// is re-fetched with category/area/owner/ingredients joined.
func (s *Service) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*RecipeResponse, error) {
	if input.ImgTempPath == "" {
		return nil, apperror.NewValidationError("recipe image is required", nil).WithCode("IMAGE_REQUIRED")
	}
	if !s.files.Exists(input.ImgTempPath) {
		return nil, apperror.NewValidationError("uploaded image not found", nil).WithCode("IMAGE_NOT_FOUND")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.NewValidationError("recipe name is required", nil).WithCode("INVALID_NAME")
	}
	if input.Time <= 0 {
		return nil, apperror.NewValidationError("time must be a positive number", nil).WithCode("INVALID_TIME")
	}
	if len(input.Ingredients) > maxIngredients {
		return nil, apperror.NewValidationError(
			fmt.Sprintf("maximum %d ingredients allowed", maxIngredients), nil).WithCode("TOO_MANY_INGREDIENTS")
	}

	categoryExists, err := s.rowExists(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !categoryExists {
		return nil, apperror.NewValidationError("invalid category", nil).WithCode("INVALID_CATEGORY")
	}

	areaExists, err := s.rowExists(ctx, `SELECT EXISTS(SELECT 1 FROM areas WHERE id = $1)`, input.AreaID)
	if err != nil {
		return nil, err
	}
	if !areaExists {
		return nil, apperror.NewValidationError("invalid area", nil).WithCode("INVALID_AREA")
	}

	imgPath, err := s.files.MoveToPublic(input.ImgTempPath, recipeImagesDir)
	if err != nil {
		return nil, apperror.NewInternalError("failed to store recipe image", err)
	}

	recipeID := uuid.NewString()
	if err := s.insertRecipeTx(ctx, recipeID, imgPath, input); err != nil {
		// The row never landed; the already relocated image would
		// otherwise be orphaned.
		s.files.RemovePublic(imgPath)
		return nil, err
	}

	detail, err := s.GetRecipe(ctx, recipeID, "")
	if err != nil {
		return nil, err
	}
	return &detail.RecipeResponse, nil
}

// insertRecipeTx creates the recipe row and its ingredient links atomically.
// Ingredients are resolved strictly by id; an unknown id aborts the whole
// creation with INVALID_INGREDIENT.
func (s *Service) insertRecipeTx(ctx context.Context, recipeID, imgPath string, input CreateRecipeInput) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO recipes (id, name, description, instructions, time, img, category_id, area_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		recipeID, strings.TrimSpace(input.Name), input.Description, input.Instructions,
		input.Time, imgPath, input.CategoryID, input.AreaID, input.OwnerID)
	if err != nil {
		return apperror.NewDatabaseError("failed to create recipe", err)
	}

	for _, ref := range input.Ingredients {
		var ingredientID string
		err := tx.QueryRow(ctx, `SELECT id FROM ingredients WHERE id = $1`, ref.ID).Scan(&ingredientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.NewValidationError(
					fmt.Sprintf("ingredient with id %q not found", ref.ID), nil).WithCode("INVALID_INGREDIENT")
			}
			return apperror.NewDatabaseError("failed to resolve ingredient", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, measure)
			VALUES ($1, $2, $3)`,
			recipeID, ingredientID, ref.Measure)
		if err != nil {
			return apperror.NewDatabaseError("failed to link ingredient", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit recipe", err)
	}
	return nil
}

// GetRecipe returns one recipe with its associations, favorite count, and
// the caller-relative favorite flag. callerID is "" for anonymous callers,
// which forces is_favorite to false.
func (s *Service) GetRecipe(ctx context.Context, recipeID, callerID string) (*RecipeDetailResponse, error) {
	detail := &RecipeDetailResponse{}
	err := s.db.QueryRow(ctx, `
		SELECT r.id, r.name, r.description, r.instructions, r.time, r.img,
		       r.created_at, r.updated_at,
		       c.id, c.name, a.id, a.name, u.id, u.name, u.avatar,
		       (SELECT COUNT(*) FROM favorite_recipes f WHERE f.recipe_id = r.id),
		       CASE WHEN $2 = '' THEN false
		            ELSE EXISTS(SELECT 1 FROM favorite_recipes f WHERE f.recipe_id = r.id AND f.user_id = $2)
		       END
		FROM recipes r
		JOIN categories c ON c.id = r.category_id
		JOIN areas a ON a.id = r.area_id
		JOIN users u ON u.id = r.owner_id
		WHERE r.id = $1`, recipeID, callerID,
	).Scan(
		&detail.ID, &detail.Name, &detail.Description, &detail.Instructions,
		&detail.Time, &detail.Img, &detail.CreatedAt, &detail.UpdatedAt,
		&detail.Category.ID, &detail.Category.Name,
		&detail.Area.ID, &detail.Area.Name,
		&detail.Owner.ID, &detail.Owner.Name, &detail.Owner.Avatar,
		&detail.FavoritesCount, &detail.IsFavorite,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("recipe not found", nil).WithCode("RECIPE_NOT_FOUND")
		}
		return nil, apperror.NewDatabaseError("failed to get recipe", err)
	}

	ingredients, err := s.loadIngredients(ctx, []string{detail.ID})
	if err != nil {
		return nil, err
	}
	detail.Ingredients = ingredients[detail.ID]
	if detail.Ingredients == nil {
		detail.Ingredients = []RecipeIngredientResponse{}
	}
	return detail, nil
}

// GetOwnRecipes returns all recipes owned by the caller, newest first, with
// associations eagerly included. No pagination.
func (s *Service) GetOwnRecipes(ctx context.Context, ownerID string) ([]RecipeResponse, error) {
	return s.queryRecipes(ctx, `
		SELECT r.id, r.name, r.description, r.instructions, r.time, r.img,
		       r.created_at, r.updated_at,
		       c.id, c.name, a.id, a.name, u.id, u.name, u.avatar
		FROM recipes r
		JOIN categories c ON c.id = r.category_id
		JOIN areas a ON a.id = r.area_id
		JOIN users u ON u.id = r.owner_id
		WHERE r.owner_id = $1
		ORDER BY r.created_at DESC`, ownerID)
}

// GetAllRecipes returns a page of recipes matching the filters (AND
// semantics), newest first, plus the total matching count before
// pagination.
func (s *Service) GetAllRecipes(ctx context.Context, filters Filters, limit, offset int) (*PagedRecipesResponse, error) {
	var conditions []string
	var args []any
	argID := 1

	addCondition := func(condition string, value string) {
		conditions = append(conditions, fmt.Sprintf(condition, argID))
		args = append(args, value)
		argID++
	}

	if filters.CategoryID != "" {
		addCondition("r.category_id = $%d", filters.CategoryID)
	}
	if filters.AreaID != "" {
		addCondition("r.area_id = $%d", filters.AreaID)
	}
	if filters.OwnerID != "" {
		addCondition("r.owner_id = $%d", filters.OwnerID)
	}
	if filters.IngredientID != "" {
		addCondition("EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = $%d)", filters.IngredientID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM recipes r %s`, whereClause)
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, apperror.NewDatabaseError("failed to count recipes", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT r.id, r.name, r.description, r.instructions, r.time, r.img,
		       r.created_at, r.updated_at,
		       c.id, c.name, a.id, a.name, u.id, u.name, u.avatar
		FROM recipes r
		JOIN categories c ON c.id = r.category_id
		JOIN areas a ON a.id = r.area_id
		JOIN users u ON u.id = r.owner_id
		%s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argID, argID+1)
	args = append(args, limit, offset)

	rows, err := s.queryRecipes(ctx, pageQuery, args...)
	if err != nil {
		return nil, err
	}
	return &PagedRecipesResponse{Count: count, Rows: rows}, nil
}

// GetPopularRecipes ranks recipes by derived favorite count, tie-broken by
// creation time descending. limit is clamped into [1, maxPopularLimit]
// regardless of the requested value. callerID may be "" (anonymous), in
// which case every is_favorite is false.
func (s *Service) GetPopularRecipes(ctx context.Context, limit int, callerID string) ([]PopularRecipeResponse, error) {
	limit = clampPopularLimit(limit)

	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.name, r.description, r.time, r.img,
		       u.id, u.name, u.avatar,
		       COUNT(f.recipe_id) AS favorites_count,
		       CASE WHEN $2 = '' THEN false
		            ELSE EXISTS(SELECT 1 FROM favorite_recipes fr WHERE fr.recipe_id = r.id AND fr.user_id = $2)
		       END
		FROM recipes r
		JOIN users u ON u.id = r.owner_id
		LEFT JOIN favorite_recipes f ON f.recipe_id = r.id
		GROUP BY r.id, u.id
		ORDER BY favorites_count DESC, r.created_at DESC
		LIMIT $1`, limit, callerID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list popular recipes", err)
	}
	defer rows.Close()

	items := []PopularRecipeResponse{}
	for rows.Next() {
		var item PopularRecipeResponse
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.Time, &item.Img,
			&item.Author.ID, &item.Author.Name, &item.Author.Avatar,
			&item.FavoritesCount, &item.IsFavorite,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan popular recipe", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read popular recipes", err)
	}
	return items, nil
}

// clampPopularLimit keeps the popularity page size inside [1, maxPopularLimit].
func clampPopularLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxPopularLimit {
		return maxPopularLimit
	}
	return limit
}

// GetFavoriteRecipes paginates the caller's favorite rows by favorite
// creation time descending, then fetches the corresponding recipes
// preserving that order, each annotated with its global favorite count.
func (s *Service) GetFavoriteRecipes(ctx context.Context, userID string, limit, offset int) (*PagedFavoritesResponse, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM favorite_recipes WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to count favorites", err)
	}

	favRows, err := s.db.Query(ctx, `
		SELECT recipe_id FROM favorite_recipes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list favorites", err)
	}
	defer favRows.Close()

	var recipeIDs []string
	for favRows.Next() {
		var recipeID string
		if err := favRows.Scan(&recipeID); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan favorite", err)
		}
		recipeIDs = append(recipeIDs, recipeID)
	}
	if err := favRows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read favorites", err)
	}
	if len(recipeIDs) == 0 {
		return &PagedFavoritesResponse{Count: count, Rows: []FavoriteRecipeResponse{}}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.name, r.description, r.time, r.img,
		       u.id, u.name, u.avatar,
		       (SELECT COUNT(*) FROM favorite_recipes f WHERE f.recipe_id = r.id)
		FROM recipes r
		JOIN users u ON u.id = r.owner_id
		WHERE r.id = ANY($1)`, recipeIDs)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to fetch favorite recipes", err)
	}
	defer rows.Close()

	byID := make(map[string]FavoriteRecipeResponse, len(recipeIDs))
	for rows.Next() {
		var row FavoriteRecipeResponse
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Description, &row.Time, &row.ImageURL,
			&row.Author.ID, &row.Author.Name, &row.Author.Avatar,
			&row.FavoritesCount,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan favorite recipe", err)
		}
		row.IsFavorite = true
		byID[row.ID] = row
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read favorite recipes", err)
	}

	// Preserve the favorite-creation ordering from the join-row page.
	ordered := make([]FavoriteRecipeResponse, 0, len(recipeIDs))
	for _, recipeID := range recipeIDs {
		if row, ok := byID[recipeID]; ok {
			ordered = append(ordered, row)
		}
	}
	return &PagedFavoritesResponse{Count: count, Rows: ordered}, nil
}

// AddFavorite marks a recipe as a favorite of the user. Idempotent: the
// join row is created at most once, dedup enforced by the store's composite
// key, and a repeat call succeeds without error.
func (s *Service) AddFavorite(ctx context.Context, userID, recipeID string) (*FavoriteStatusResponse, error) {
	if err := s.requireRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO favorite_recipes (user_id, recipe_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, recipe_id) DO NOTHING`, userID, recipeID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to add favorite", err)
	}
	return &FavoriteStatusResponse{IsFavorite: true}, nil
}

// RemoveFavorite unmarks a recipe. Removing an absent favorite is a no-op.
func (s *Service) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	if err := s.requireRecipe(ctx, recipeID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx,
		`DELETE FROM favorite_recipes WHERE user_id = $1 AND recipe_id = $2`,
		userID, recipeID)
	if err != nil {
		return apperror.NewDatabaseError("failed to remove favorite", err)
	}
	return nil
}

// DeleteOwnRecipe deletes a recipe the caller owns: favorite rows and
// ingredient links go first, then the recipe row, all in one transaction.
// An ownership mismatch is reported as RECIPE_NOT_FOUND, indistinguishable
// from a missing recipe. The image file is removed best-effort after commit
// and can never block the deletion.
func (s *Service) DeleteOwnRecipe(ctx context.Context, recipeID, ownerID string) error {
	var imgPath string
	err := s.db.QueryRow(ctx,
		`SELECT img FROM recipes WHERE id = $1 AND owner_id = $2`,
		recipeID, ownerID,
	).Scan(&imgPath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("recipe not found", nil).WithCode("RECIPE_NOT_FOUND")
		}
		return apperror.NewDatabaseError("failed to find recipe", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM favorite_recipes WHERE recipe_id = $1`, recipeID); err != nil {
		return apperror.NewDatabaseError("failed to delete favorites", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipeID); err != nil {
		return apperror.NewDatabaseError("failed to delete ingredient links", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1 AND owner_id = $2`, recipeID, ownerID); err != nil {
		return apperror.NewDatabaseError("failed to delete recipe", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit deletion", err)
	}

	s.files.RemovePublic(imgPath)
	return nil
}

// requireRecipe fails with RECIPE_NOT_FOUND when no recipe has the id.
func (s *Service) requireRecipe(ctx context.Context, recipeID string) error {
	exists, err := s.rowExists(ctx, `SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`, recipeID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFoundError("recipe not found", nil).WithCode("RECIPE_NOT_FOUND")
	}
	return nil
}

func (s *Service) rowExists(ctx context.Context, query, id string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed existence check", err)
	}
	return exists, nil
}

// queryRecipes runs a select with the standard recipe column list, then
// attaches ingredients to every returned row in one extra query.
func (s *Service) queryRecipes(ctx context.Context, query string, args ...any) ([]RecipeResponse, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list recipes", err)
	}
	defer rows.Close()

	recipes := []RecipeResponse{}
	var recipeIDs []string
	for rows.Next() {
		var recipe RecipeResponse
		if err := rows.Scan(
			&recipe.ID, &recipe.Name, &recipe.Description, &recipe.Instructions,
			&recipe.Time, &recipe.Img, &recipe.CreatedAt, &recipe.UpdatedAt,
			&recipe.Category.ID, &recipe.Category.Name,
			&recipe.Area.ID, &recipe.Area.Name,
			&recipe.Owner.ID, &recipe.Owner.Name, &recipe.Owner.Avatar,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan recipe", err)
		}
		recipe.Ingredients = []RecipeIngredientResponse{}
		recipes = append(recipes, recipe)
		recipeIDs = append(recipeIDs, recipe.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read recipes", err)
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	ingredients, err := s.loadIngredients(ctx, recipeIDs)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		if linked, ok := ingredients[recipes[i].ID]; ok {
			recipes[i].Ingredients = linked
		}
	}
	return recipes, nil
}

// loadIngredients fetches the linked ingredients for a set of recipes in a
// single query, keyed by recipe id.
func (s *Service) loadIngredients(ctx context.Context, recipeIDs []string) (map[string][]RecipeIngredientResponse, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ri.recipe_id, i.id, i.name, i.img, ri.measure
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY i.name ASC`, recipeIDs)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to load ingredients", err)
	}
	defer rows.Close()

	byRecipe := make(map[string][]RecipeIngredientResponse)
	for rows.Next() {
		var recipeID string
		var ingredient RecipeIngredientResponse
		if err := rows.Scan(&recipeID, &ingredient.ID, &ingredient.Name, &ingredient.Img, &ingredient.Measure); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan ingredient link", err)
		}
		byRecipe[recipeID] = append(byRecipe[recipeID], ingredient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read ingredient links", err)
	}
	return byRecipe, nil
}
