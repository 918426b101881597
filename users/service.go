// Package users implements user profiles and the follow graph.
package users

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/db"
)

const avatarImagesDir = "avatars"

// AvatarStore is the filesystem collaborator for avatar uploads.
type AvatarStore interface {
	SaveUpload(file multipart.File, header *multipart.FileHeader) (string, error)
	MoveToPublic(tempPath, subdir string) (string, error)
	RemovePublic(publicPath string)
}

// Service provides user profile and follow operations.
type Service struct {
	db    db.Querier
	files AvatarStore
}

// NewService creates a new user Service.
func NewService(pool db.Querier, files AvatarStore) *Service {
	return &Service{db: pool, files: files}
}

// GetCurrentUser returns the caller's profile. The four aggregate counts
// are independent queries, so they run concurrently.
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*CurrentUserResponse, error) {
	resp := &CurrentUserResponse{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, avatar FROM users WHERE id = $1`, userID,
	).Scan(&resp.ID, &resp.Name, &resp.Email, &resp.Avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil).WithCode("USER_NOT_FOUND")
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.countInto(gctx, `SELECT COUNT(*) FROM recipes WHERE owner_id = $1`, userID, &resp.RecipesAmount)
	})
	g.Go(func() error {
		return s.countInto(gctx, `SELECT COUNT(*) FROM favorite_recipes WHERE user_id = $1`, userID, &resp.FavoriteRecipesAmount)
	})
	g.Go(func() error {
		return s.countInto(gctx, `SELECT COUNT(*) FROM user_followers WHERE followee_id = $1`, userID, &resp.FollowersAmount)
	})
	g.Go(func() error {
		return s.countInto(gctx, `SELECT COUNT(*) FROM user_followers WHERE follower_id = $1`, userID, &resp.FollowingsAmount)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUser returns a public profile. callerID may be "" (anonymous), which
// leaves is_following false.
func (s *Service) GetUser(ctx context.Context, userID, callerID string) (*ProfileResponse, error) {
	resp := &ProfileResponse{}
	err := s.db.QueryRow(ctx, `
		SELECT u.id, u.name, u.avatar,
		       (SELECT COUNT(*) FROM recipes r WHERE r.owner_id = u.id),
		       (SELECT COUNT(*) FROM user_followers f WHERE f.followee_id = u.id),
		       CASE WHEN $2 = '' THEN false
		            ELSE EXISTS(SELECT 1 FROM user_followers f WHERE f.followee_id = u.id AND f.follower_id = $2)
		       END
		FROM users u
		WHERE u.id = $1`, userID, callerID,
	).Scan(&resp.ID, &resp.Name, &resp.Avatar, &resp.RecipesAmount, &resp.FollowersAmount, &resp.IsFollowing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil).WithCode("USER_NOT_FOUND")
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}
	return resp, nil
}

// FollowUser adds a follow edge from follower to followee. Following
// yourself is rejected; re-following is a no-op.
func (s *Service) FollowUser(ctx context.Context, followerID, followeeID string) (*FollowStatusResponse, error) {
	if followerID == followeeID {
		return nil, apperror.NewValidationError("you cannot follow yourself", nil).WithCode("CANNOT_FOLLOW_SELF")
	}
	if err := s.requireUser(ctx, followeeID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO user_followers (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`, followerID, followeeID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to follow user", err)
	}
	return &FollowStatusResponse{IsFollowing: true}, nil
}

// UnfollowUser removes a follow edge. Unfollowing someone you never
// followed is reported as NOT_FOLLOWING.
func (s *Service) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	if err := s.requireUser(ctx, followeeID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM user_followers WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return apperror.NewDatabaseError("failed to unfollow user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("you are not following this user", nil).WithCode("NOT_FOLLOWING")
	}
	return nil
}

// GetFollowers lists users following the given user, newest edge first.
func (s *Service) GetFollowers(ctx context.Context, userID string) ([]FollowerResponse, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.queryFollowList(ctx, `
		SELECT u.id, u.name, u.avatar,
		       (SELECT COUNT(*) FROM recipes r WHERE r.owner_id = u.id)
		FROM user_followers f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY f.created_at DESC`, userID)
}

// GetFollowing lists users the given user follows, newest edge first.
func (s *Service) GetFollowing(ctx context.Context, userID string) ([]FollowerResponse, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.queryFollowList(ctx, `
		SELECT u.id, u.name, u.avatar,
		       (SELECT COUNT(*) FROM recipes r WHERE r.owner_id = u.id)
		FROM user_followers f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC`, userID)
}

// UpdateAvatar stores an uploaded avatar in public storage, points the user
// row at the new path, and removes the previous file best-effort.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*AvatarResponse, error) {
	var oldAvatar *string
	err := s.db.QueryRow(ctx, `SELECT avatar FROM users WHERE id = $1`, userID).Scan(&oldAvatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil).WithCode("USER_NOT_FOUND")
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	tempPath, err := s.files.SaveUpload(file, header)
	if err != nil {
		return nil, apperror.NewInternalError("failed to store upload", err)
	}
	avatarPath, err := s.files.MoveToPublic(tempPath, avatarImagesDir)
	if err != nil {
		return nil, apperror.NewInternalError("failed to store avatar", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE users SET avatar = $1, updated_at = now() WHERE id = $2`,
		avatarPath, userID)
	if err != nil {
		s.files.RemovePublic(avatarPath)
		return nil, apperror.NewDatabaseError("failed to update avatar", err)
	}

	if oldAvatar != nil && *oldAvatar != "" {
		s.files.RemovePublic(*oldAvatar)
	}
	return &AvatarResponse{Avatar: avatarPath}, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return apperror.NewDatabaseError("failed existence check", err)
	}
	if !exists {
		return apperror.NewNotFoundError("user not found", nil).WithCode("USER_NOT_FOUND")
	}
	return nil
}

func (s *Service) countInto(ctx context.Context, query, id string, dest *int64) error {
	if err := s.db.QueryRow(ctx, query, id).Scan(dest); err != nil {
		return apperror.NewDatabaseError("failed to count rows", err)
	}
	return nil
}

func (s *Service) queryFollowList(ctx context.Context, query, userID string) ([]FollowerResponse, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list follows", err)
	}
	defer rows.Close()

	items := []FollowerResponse{}
	for rows.Next() {
		var item FollowerResponse
		if err := rows.Scan(&item.ID, &item.Name, &item.Avatar, &item.RecipesAmount); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan follow entry", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read follow list", err)
	}
	return items, nil
}
