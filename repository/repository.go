package repository

import (
	"context"
	"errors"

	"civicreport-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// ReportSort selects the ordering of a report listing
type ReportSort int

const (
	// SortNewest orders by creation time, newest first
	SortNewest ReportSort = iota
	// SortPopular orders by upvote count, then newest first
	SortPopular
)

// ReportFilter narrows a report listing. Nil or empty fields place no constraint.
type ReportFilter struct {
	// District and Municipality match exactly when set, including the empty string
	District     *string
	Municipality *string
	Department   models.Department
	Status       models.ReportStatus
	UserID       *uuid.UUID

	// Search is a case-insensitive substring matched against district OR municipality
	Search string

	// Viewer, when set, makes each listed report carry Upvoted for that user
	Viewer uuid.UUID

	Sort  ReportSort
	Limit int
}

// ReportStore persists reports together with their upvotes and comments.
//
// AddUpvote, RemoveUpvote and AddComment are atomic with respect to each other:
// concurrent calls on the same report never lose an update, and the stored
// upvote count always equals the number of distinct upvoters.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*models.Report, error)
	Find(ctx context.Context, filter ReportFilter) ([]*models.Report, error)
	Count(ctx context.Context, filter ReportFilter) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error)

	// AddUpvote inserts userID into the report's upvoter set and returns the resulting count
	AddUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error)
	// RemoveUpvote removes userID from the report's upvoter set and returns the resulting count
	RemoveUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error)

	AddComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, reportID uuid.UUID) ([]*models.Comment, error)
}

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, district, municipality string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// StringPtr is a helper to build exact-match filters
func StringPtr(s string) *string { return &s }
