package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"civicreport-backend/events"
	"civicreport-backend/models"
	"civicreport-backend/repository"

	"github.com/google/uuid"
)

// EngagementService handles upvotes and comments on reports
type EngagementService struct {
	reports   repository.ReportStore
	users     repository.UserStore
	publisher events.Publisher
}

// EngagementServiceOption is a functional option for EngagementService
type EngagementServiceOption func(*EngagementService)

// EngagementWithReportStore sets the report store
func EngagementWithReportStore(store repository.ReportStore) EngagementServiceOption {
	return func(s *EngagementService) {
		s.reports = store
	}
}

// EngagementWithUserStore sets the user store used to resolve comment authors
func EngagementWithUserStore(store repository.UserStore) EngagementServiceOption {
	return func(s *EngagementService) {
		s.users = store
	}
}

// EngagementWithPublisher sets the event publisher
func EngagementWithPublisher(p events.Publisher) EngagementServiceOption {
	return func(s *EngagementService) {
		s.publisher = p
	}
}

// NewEngagementService creates a new engagement service
func NewEngagementService(opts ...EngagementServiceOption) *EngagementService {
	s := &EngagementService{publisher: events.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpvoteRequest identifies a report and the user toggling their upvote
type UpvoteRequest struct {
	ReportID uuid.UUID
	UserID   uuid.UUID
}

// UpvoteResult is the state of the caller's upvote after the toggle
type UpvoteResult struct {
	UpvoteCount int  `json:"upvoteCount"`
	Upvoted     bool `json:"upvoted"`
}

// Upvote adds the caller to the report's upvoters. Repeating it is a no-op.
func (s *EngagementService) Upvote(ctx context.Context, req UpvoteRequest) (*UpvoteResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	count, err := s.reports.AddUpvote(ctx, req.ReportID, req.UserID)
	if err != nil {
		return nil, reportErr(err)
	}
	return &UpvoteResult{UpvoteCount: count, Upvoted: true}, nil
}

// Unupvote removes the caller from the report's upvoters. Repeating it is a no-op.
func (s *EngagementService) Unupvote(ctx context.Context, req UpvoteRequest) (*UpvoteResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	count, err := s.reports.RemoveUpvote(ctx, req.ReportID, req.UserID)
	if err != nil {
		return nil, reportErr(err)
	}
	return &UpvoteResult{UpvoteCount: count, Upvoted: false}, nil
}

// AddCommentRequest represents a request to comment on a report
type AddCommentRequest struct {
	ReportID uuid.UUID
	UserID   uuid.UUID
	Text     string
}

// AddCommentResult represents the result of adding a comment
type AddCommentResult struct {
	Comment *models.Comment
}

// AddComment appends a comment to a report
func (s *EngagementService) AddComment(ctx context.Context, req AddCommentRequest) (*AddCommentResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, validationError("comment text is required")
	}

	comment := &models.Comment{
		ReportID: req.ReportID,
		UserID:   req.UserID,
		Text:     text,
	}
	if err := s.reports.AddComment(ctx, comment); err != nil {
		return nil, reportErr(err)
	}

	if s.users != nil {
		authors, err := s.resolveAuthors(ctx, []*models.Comment{comment})
		if err != nil {
			log.Printf("engagement: resolve author of comment %s: %v", comment.ID, err)
		} else {
			comment.Author = authors[comment.UserID]
		}
	}

	commentID := comment.ID
	s.publish(ctx, events.SubjectReportCommented, events.Event{
		ReportID:   comment.ReportID,
		ActorID:    comment.UserID,
		CommentID:  &commentID,
		OccurredAt: comment.CreatedAt,
	})

	return &AddCommentResult{Comment: comment}, nil
}

// ListCommentsRequest represents a request to list the comments of a report
type ListCommentsRequest struct {
	ReportID uuid.UUID
}

// ListCommentsResult holds comments in display order with their authors resolved
type ListCommentsResult struct {
	Comments []*models.Comment
}

// ListComments returns every comment of a report, oldest first
func (s *EngagementService) ListComments(ctx context.Context, req ListCommentsRequest) (*ListCommentsResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}
	if s.users == nil {
		return nil, errors.New("user store not set")
	}

	comments, err := s.reports.ListComments(ctx, req.ReportID)
	if err != nil {
		return nil, reportErr(err)
	}

	authors, err := s.resolveAuthors(ctx, comments)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.Author = authors[c.UserID]
	}

	return &ListCommentsResult{Comments: comments}, nil
}

// resolveAuthors looks up every distinct author once. Authors whose account no
// longer exists are returned with only their id.
func (s *EngagementService) resolveAuthors(ctx context.Context, comments []*models.Comment) (map[uuid.UUID]*models.CommentAuthor, error) {
	seen := make(map[uuid.UUID]struct{}, len(comments))
	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	authors := make(map[uuid.UUID]*models.CommentAuthor, len(ids))
	for _, id := range ids {
		author := &models.CommentAuthor{ID: id}
		if u, ok := users[id]; ok {
			author.Username = u.Username
			author.MobileNumber = u.MobileNumber
		}
		authors[id] = author
	}
	return authors, nil
}

func (s *EngagementService) publish(ctx context.Context, subject string, event events.Event) {
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		log.Printf("engagement: publish %s for report %s: %v", subject, event.ReportID, err)
	}
}
