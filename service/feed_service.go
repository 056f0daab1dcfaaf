package service

import (
	"context"
	"errors"
	"strings"

	"civicreport-backend/models"
	"civicreport-backend/repository"

	"github.com/google/uuid"
)

// DefaultFeedLimit caps the number of reports returned by a feed request
const DefaultFeedLimit = 200

// FeedScope selects which reports a feed draws from
type FeedScope string

const (
	// ScopeLocal limits the feed to the caller's district and municipality
	ScopeLocal FeedScope = "local"
	// ScopeAll places no location restriction on the feed
	ScopeAll FeedScope = "all"
)

// FeedService composes the report feed seen by a citizen
type FeedService struct {
	reports repository.ReportStore
	users   repository.UserStore
	limit   int
}

// FeedServiceOption is a functional option for FeedService
type FeedServiceOption func(*FeedService)

// FeedWithReportStore sets the report store
func FeedWithReportStore(store repository.ReportStore) FeedServiceOption {
	return func(s *FeedService) {
		s.reports = store
	}
}

// FeedWithUserStore sets the user store used to resolve the caller's location
func FeedWithUserStore(store repository.UserStore) FeedServiceOption {
	return func(s *FeedService) {
		s.users = store
	}
}

// FeedWithLimit overrides the feed size cap
func FeedWithLimit(limit int) FeedServiceOption {
	return func(s *FeedService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewFeedService creates a new feed service
func NewFeedService(opts ...FeedServiceOption) *FeedService {
	s := &FeedService{limit: DefaultFeedLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FeedRequest represents a request for a user's feed
type FeedRequest struct {
	UserID uuid.UUID
	Scope  string
	Search string
}

// FeedResult holds feed reports, newest first
type FeedResult struct {
	Reports []*models.Report
}

// GetFeed returns the newest reports visible to the caller.
//
// Local scope matches the caller's district and municipality exactly. A non-empty
// search narrows the scope to reports whose district or municipality contains it,
// ignoring case; it never widens the scope.
func (s *FeedService) GetFeed(ctx context.Context, req FeedRequest) (*FeedResult, error) {
	if s.reports == nil || s.users == nil {
		return nil, errors.New("feed stores not set")
	}

	scope := FeedScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if scope == "" {
		scope = ScopeLocal
	}
	if scope != ScopeLocal && scope != ScopeAll {
		return nil, validationError("scope must be %q or %q", ScopeLocal, ScopeAll)
	}

	caller, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	filter := repository.ReportFilter{
		Search: strings.TrimSpace(req.Search),
		Viewer: caller.ID,
		Sort:   repository.SortNewest,
		Limit:  s.limit,
	}
	if scope == ScopeLocal {
		filter.District = repository.StringPtr(caller.District)
		filter.Municipality = repository.StringPtr(caller.Municipality)
	}

	reports, err := s.reports.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &FeedResult{Reports: reports}, nil
}
