package users

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

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewService(mock, nil), mock
}

func TestGetCurrentUserAggregatesCounts(t *testing.T) {
	service, mock := newTestService(t)
	// The four count queries run concurrently, so their order is not fixed.
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, avatar FROM users WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "avatar"}).
			AddRow("user-1", "Cook", "cook@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM recipes WHERE owner_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM favorite_recipes WHERE user_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM user_followers WHERE followee_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM user_followers WHERE follower_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	resp, err := service.GetCurrentUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.RecipesAmount)
	assert.Equal(t, int64(3), resp.FavoriteRecipesAmount)
	assert.Equal(t, int64(10), resp.FollowersAmount)
	assert.Equal(t, int64(4), resp.FollowingsAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCurrentUserNotFound(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, avatar FROM users WHERE id = $1`)).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := service.GetCurrentUser(context.Background(), "ghost")
	assert.True(t, apperror.HasCode(err, "USER_NOT_FOUND"))
}

func TestFollowSelfRejected(t *testing.T) {
	// The self check runs before any query; a nil db would panic otherwise.
	service := NewService(nil, nil)

	_, err := service.FollowUser(context.Background(), "user-1", "user-1")
	assert.True(t, apperror.HasCode(err, "CANNOT_FOLLOW_SELF"))
}

func TestFollowUnknownUser(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := service.FollowUser(context.Background(), "user-1", "ghost")
	assert.True(t, apperror.HasCode(err, "USER_NOT_FOUND"))
}

func TestFollowIsIdempotent(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	// Repeated follow hits the conflict clause: zero rows, still success.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_followers`)).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	resp, err := service.FollowUser(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	assert.True(t, resp.IsFollowing)
}

func TestUnfollowWithoutEdge(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_followers`)).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := service.UnfollowUser(context.Background(), "user-1", "user-2")
	assert.True(t, apperror.HasCode(err, "NOT_FOLLOWING"))
}

func TestGetUserAnonymousNeverFollows(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery(`FROM users u`).
		WithArgs("user-2", "").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "avatar", "recipes", "followers", "is_following",
		}).AddRow("user-2", "Chef", nil, int64(2), int64(5), false))

	resp, err := service.GetUser(context.Background(), "user-2", "")
	require.NoError(t, err)
	assert.False(t, resp.IsFollowing)
	assert.Equal(t, int64(5), resp.FollowersAmount)
}
