package recipes

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/foodies-go/apperror"
)

// stubFiles is an in-memory FileMover recording its calls.
type stubFiles struct {
	exists  bool
	removed []string
}

func (s *stubFiles) Exists(string) bool { return s.exists }

func (s *stubFiles) MoveToPublic(tempPath, subdir string) (string, error) {
	return "/public/" + subdir + "/image.jpg", nil
}

func (s *stubFiles) RemovePublic(publicPath string) {
	s.removed = append(s.removed, publicPath)
}

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface, *stubFiles) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	files := &stubFiles{exists: true}
	return NewService(mock, files), mock, files
}

func validInput() CreateRecipeInput {
	return CreateRecipeInput{
		OwnerID:     "user-1",
		Name:        "Borscht",
		Time:        90,
		CategoryID:  "cat-1",
		AreaID:      "area-1",
		ImgTempPath: "/tmp/upload.jpg",
	}
}

func TestCreateRecipeValidationOrder(t *testing.T) {
	// These inputs fail before any query runs, so the store is never
	// touched: a nil db would panic if it were.
	files := &stubFiles{exists: true}
	service := NewService(nil, files)

	t.Run("image required", func(t *testing.T) {
		input := validInput()
		input.ImgTempPath = ""
		_, err := service.CreateRecipe(context.Background(), input)
		assert.True(t, apperror.HasCode(err, "IMAGE_REQUIRED"))
	})

	t.Run("image not found", func(t *testing.T) {
		service := NewService(nil, &stubFiles{exists: false})
		_, err := service.CreateRecipe(context.Background(), validInput())
		assert.True(t, apperror.HasCode(err, "IMAGE_NOT_FOUND"))
	})

	t.Run("blank name", func(t *testing.T) {
		input := validInput()
		input.Name = "   "
		_, err := service.CreateRecipe(context.Background(), input)
		assert.True(t, apperror.HasCode(err, "INVALID_NAME"))
	})

	t.Run("non-positive time", func(t *testing.T) {
		input := validInput()
		input.Time = 0
		_, err := service.CreateRecipe(context.Background(), input)
		assert.True(t, apperror.HasCode(err, "INVALID_TIME"))
	})

	t.Run("too many ingredients", func(t *testing.T) {
		input := validInput()
		for i := 0; i <= maxIngredients; i++ {
			input.Ingredients = append(input.Ingredients, IngredientRef{ID: "ing"})
		}
		_, err := service.CreateRecipe(context.Background(), input)
		assert.True(t, apperror.HasCode(err, "TOO_MANY_INGREDIENTS"))
	})

	assert.Empty(t, files.removed, "nothing should be moved or removed on early failure")
}

func TestCreateRecipeUnknownCategory(t *testing.T) {
	service, mock, files := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`)).
		WithArgs("cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := service.CreateRecipe(context.Background(), validInput())
	assert.True(t, apperror.HasCode(err, "INVALID_CATEGORY"))
	assert.Empty(t, files.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipeUnknownArea(t *testing.T) {
	service, mock, _ := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`)).
		WithArgs("cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM areas WHERE id = $1)`)).
		WithArgs("area-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := service.CreateRecipe(context.Background(), validInput())
	assert.True(t, apperror.HasCode(err, "INVALID_AREA"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipeUnknownIngredientRollsBack(t *testing.T) {
	service, mock, files := newTestService(t)

	input := validInput()
	input.Ingredients = []IngredientRef{{ID: "missing-ingredient"}}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`)).
		WithArgs("cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM areas WHERE id = $1)`)).
		WithArgs("area-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO recipes`)).
		WithArgs(pgxmock.AnyArg(), "Borscht", "", "", 90, "/public/recipes/image.jpg", "cat-1", "area-1", "user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM ingredients WHERE id = $1`)).
		WithArgs("missing-ingredient").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := service.CreateRecipe(context.Background(), input)
	assert.True(t, apperror.HasCode(err, "INVALID_INGREDIENT"))
	// The relocated image is cleaned up when the row never lands.
	assert.Equal(t, []string{"/public/recipes/image.jpg"}, files.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClampPopularLimit(t *testing.T) {
	assert.Equal(t, 1, clampPopularLimit(0))
	assert.Equal(t, 1, clampPopularLimit(-5))
	assert.Equal(t, 4, clampPopularLimit(4))
	assert.Equal(t, maxPopularLimit, clampPopularLimit(maxPopularLimit))
	assert.Equal(t, maxPopularLimit, clampPopularLimit(maxPopularLimit+1))
	assert.Equal(t, maxPopularLimit, clampPopularLimit(10000))
}

func TestGetPopularRecipesClampsRequestedLimit(t *testing.T) {
	service, mock, _ := newTestService(t)

	mock.ExpectQuery(`FROM recipes r`).
		WithArgs(maxPopularLimit, "").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "description", "time", "img",
			"owner_id", "owner_name", "owner_avatar", "favorites_count", "is_favorite",
		}))

	items, err := service.GetPopularRecipes(context.Background(), 500, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavoriteIsIdempotent(t *testing.T) {
	service, mock, _ := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`)).
		WithArgs("recipe-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	// Second insert hits the conflict clause: zero rows, still success.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO favorite_recipes`)).
		WithArgs("user-1", "recipe-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	resp, err := service.AddFavorite(context.Background(), "user-1", "recipe-1")
	require.NoError(t, err)
	assert.True(t, resp.IsFavorite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavoriteUnknownRecipe(t *testing.T) {
	service, mock, _ := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`)).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := service.AddFavorite(context.Background(), "user-1", "ghost")
	assert.True(t, apperror.HasCode(err, "RECIPE_NOT_FOUND"))
}

func TestRemoveFavoriteAbsentIsNoop(t *testing.T) {
	service, mock, _ := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`)).
		WithArgs("recipe-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM favorite_recipes`)).
		WithArgs("user-1", "recipe-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := service.RemoveFavorite(context.Background(), "user-1", "recipe-1")
	assert.NoError(t, err)
}

func TestDeleteOwnRecipeMasksOwnershipMismatch(t *testing.T) {
	service, mock, files := newTestService(t)

	// Someone else's recipe: the owner predicate filters it out, and the
	// caller cannot tell that from a recipe that does not exist.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT img FROM recipes WHERE id = $1 AND owner_id = $2`)).
		WithArgs("recipe-1", "intruder").
		WillReturnError(pgx.ErrNoRows)

	err := service.DeleteOwnRecipe(context.Background(), "recipe-1", "intruder")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, "RECIPE_NOT_FOUND"))
	assert.Empty(t, files.removed)
}

func TestDeleteOwnRecipeRemovesJoinRowsFirst(t *testing.T) {
	service, mock, files := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT img FROM recipes WHERE id = $1 AND owner_id = $2`)).
		WithArgs("recipe-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"img"}).AddRow("/public/recipes/image.jpg"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM favorite_recipes WHERE recipe_id = $1`)).
		WithArgs("recipe-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM recipe_ingredients WHERE recipe_id = $1`)).
		WithArgs("recipe-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM recipes WHERE id = $1 AND owner_id = $2`)).
		WithArgs("recipe-1", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := service.DeleteOwnRecipe(context.Background(), "recipe-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/public/recipes/image.jpg"}, files.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
