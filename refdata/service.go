// Package refdata serves the read-only lookup sets (categories, areas,
// ingredients) used to validate and enrich recipes.
package refdata

import (
	"context"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/db"
)

// CategoryResponse is the public representation of a category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AreaResponse is the public representation of an area (cuisine origin).
type AreaResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IngredientResponse is the public representation of an ingredient.
type IngredientResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Img         *string `json:"img"`
}

// Service provides reference-data lookups.
type Service struct {
	db db.Querier
}

// NewService creates a new reference-data Service.
func NewService(pool db.Querier) *Service {
	return &Service{db: pool}
}

// GetCategories returns all categories in alphabetical order.
func (s *Service) GetCategories(ctx context.Context) ([]CategoryResponse, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list categories", err)
	}
	defer rows.Close()

	categories := []CategoryResponse{}
	for rows.Next() {
		var c CategoryResponse
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read categories", err)
	}
	return categories, nil
}

// GetAreas returns all areas, newest first with id as the tie-breaker.
func (s *Service) GetAreas(ctx context.Context) ([]AreaResponse, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM areas ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list areas", err)
	}
	defer rows.Close()

	areas := []AreaResponse{}
	for rows.Next() {
		var a AreaResponse
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan area", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read areas", err)
	}
	return areas, nil
}

// GetIngredients returns all ingredients, newest first with id as the
// tie-breaker.
func (s *Service) GetIngredients(ctx context.Context) ([]IngredientResponse, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, img
		FROM ingredients
		ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list ingredients", err)
	}
	defer rows.Close()

	ingredients := []IngredientResponse{}
	for rows.Next() {
		var i IngredientResponse
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.Img); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan ingredient", err)
		}
		ingredients = append(ingredients, i)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read ingredients", err)
	}
	return ingredients, nil
}
