// Package testimonials implements user-authored testimonials with
// owner-scoped editing.
package testimonials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/db"
)

// TestimonialResponse is one testimonial with its author attached.
type TestimonialResponse struct {
	ID          string    `json:"id"`
	Testimonial string    `json:"testimonial"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Author      struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Avatar *string `json:"avatar"`
	} `json:"author"`
}

// CreateTestimonialRequest is the create/update payload.
type CreateTestimonialRequest struct {
	Testimonial string `json:"testimonial"`
}

// Service provides testimonial operations.
type Service struct {
	db db.Querier
}

// NewService creates a new testimonial Service.
func NewService(pool db.Querier) *Service {
	return &Service{db: pool}
}

const selectTestimonial = `
	SELECT t.id, t.testimonial, t.created_at, t.updated_at,
	       u.id, u.name, u.avatar
	FROM testimonials t
	JOIN users u ON u.id = t.owner_id`

// GetTestimonials lists all testimonials, newest first.
func (s *Service) GetTestimonials(ctx context.Context) ([]TestimonialResponse, error) {
	rows, err := s.db.Query(ctx, selectTestimonial+` ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list testimonials", err)
	}
	defer rows.Close()

	items := []TestimonialResponse{}
	for rows.Next() {
		var item TestimonialResponse
		if err := rows.Scan(
			&item.ID, &item.Testimonial, &item.CreatedAt, &item.UpdatedAt,
			&item.Author.ID, &item.Author.Name, &item.Author.Avatar,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan testimonial", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read testimonials", err)
	}
	return items, nil
}

// GetUserTestimonials lists one user's testimonials, newest first.
func (s *Service) GetUserTestimonials(ctx context.Context, userID string) ([]TestimonialResponse, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed existence check", err)
	}
	if !exists {
		return nil, apperror.NewNotFoundError("user not found", nil).WithCode("USER_NOT_FOUND")
	}

	rows, err := s.db.Query(ctx, selectTestimonial+` WHERE t.owner_id = $1 ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list testimonials", err)
	}
	defer rows.Close()

	items := []TestimonialResponse{}
	for rows.Next() {
		var item TestimonialResponse
		if err := rows.Scan(
			&item.ID, &item.Testimonial, &item.CreatedAt, &item.UpdatedAt,
			&item.Author.ID, &item.Author.Name, &item.Author.Avatar,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan testimonial", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read testimonials", err)
	}
	return items, nil
}

// GetTestimonial returns one testimonial by id.
func (s *Service) GetTestimonial(ctx context.Context, id string) (*TestimonialResponse, error) {
	item := &TestimonialResponse{}
	err := s.db.QueryRow(ctx, selectTestimonial+` WHERE t.id = $1`, id).Scan(
		&item.ID, &item.Testimonial, &item.CreatedAt, &item.UpdatedAt,
		&item.Author.ID, &item.Author.Name, &item.Author.Avatar,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("testimonial not found", nil).WithCode("TESTIMONIAL_NOT_FOUND")
		}
		return nil, apperror.NewDatabaseError("failed to get testimonial", err)
	}
	return item, nil
}

// CreateTestimonial stores a new testimonial owned by the caller.
func (s *Service) CreateTestimonial(ctx context.Context, ownerID string, req CreateTestimonialRequest) (*TestimonialResponse, error) {
	if strings.TrimSpace(req.Testimonial) == "" {
		return nil, apperror.NewValidationError("testimonial text is required", nil)
	}

	id := uuid.NewString()
	_, err := s.db.Exec(ctx,
		`INSERT INTO testimonials (id, owner_id, testimonial) VALUES ($1, $2, $3)`,
		id, ownerID, strings.TrimSpace(req.Testimonial))
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create testimonial", err)
	}
	return s.GetTestimonial(ctx, id)
}

// UpdateTestimonial rewrites a testimonial's text. Only the owner may edit;
// anyone else gets FORBIDDEN.
func (s *Service) UpdateTestimonial(ctx context.Context, id, callerID string, req CreateTestimonialRequest) (*TestimonialResponse, error) {
	if strings.TrimSpace(req.Testimonial) == "" {
		return nil, apperror.NewValidationError("testimonial text is required", nil)
	}
	if err := s.requireOwnership(ctx, id, callerID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(ctx,
		`UPDATE testimonials SET testimonial = $1, updated_at = now() WHERE id = $2`,
		strings.TrimSpace(req.Testimonial), id)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update testimonial", err)
	}
	return s.GetTestimonial(ctx, id)
}

// DeleteTestimonial removes a testimonial. Only the owner may delete.
func (s *Service) DeleteTestimonial(ctx context.Context, id, callerID string) error {
	if err := s.requireOwnership(ctx, id, callerID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `DELETE FROM testimonials WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete testimonial", err)
	}
	return nil
}

func (s *Service) requireOwnership(ctx context.Context, id, callerID string) error {
	var ownerID string
	err := s.db.QueryRow(ctx, `SELECT owner_id FROM testimonials WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("testimonial not found", nil).WithCode("TESTIMONIAL_NOT_FOUND")
		}
		return apperror.NewDatabaseError("failed to get testimonial", err)
	}
	if ownerID != callerID {
		return apperror.NewForbiddenError("you do not own this testimonial", nil).WithCode("FORBIDDEN")
	}
	return nil
}
