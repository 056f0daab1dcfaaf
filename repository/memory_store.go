package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"civicreport-backend/models"

	"github.com/google/uuid"
)

type memoryReport struct {
	report   models.Report
	seq      int
	upvoters map[uuid.UUID]struct{}
	comments []models.Comment
}

// MemoryReportStore keeps reports in process memory. Every operation runs under
// one mutex, which makes engagement updates linearizable.
type MemoryReportStore struct {
	mu      sync.Mutex
	seq     int
	reports map[uuid.UUID]*memoryReport
}

// NewMemoryReportStore creates an empty in-memory report store
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[uuid.UUID]*memoryReport)}
}

// Create inserts a new report
func (s *MemoryReportStore) Create(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if _, exists := s.reports[report.ID]; exists {
		return ErrDuplicate
	}
	if report.Status == "" {
		report.Status = models.StatusReported
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt
	report.UpvoteCount = 0
	report.CommentsCount = 0
	report.Upvoted = nil
	if report.Media == nil {
		report.Media = make(models.MediaAssets, 0)
	}

	s.seq++
	stored := *report
	stored.Media = append(models.MediaAssets(nil), report.Media...)
	s.reports[report.ID] = &memoryReport{
		report:   stored,
		seq:      s.seq,
		upvoters: make(map[uuid.UUID]struct{}),
	}
	return nil
}

// GetByID retrieves a report by ID, computing Upvoted for viewer when set
func (s *MemoryReportStore) GetByID(_ context.Context, id uuid.UUID, viewer uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.view(viewer), nil
}

// Find lists reports matching filter
func (s *MemoryReportStore) Find(_ context.Context, filter ReportFilter) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.Sort == SortPopular && a.report.UpvoteCount != b.report.UpvoteCount {
			return a.report.UpvoteCount > b.report.UpvoteCount
		}
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	reports := make([]*models.Report, 0, len(matched))
	for _, entry := range matched {
		reports = append(reports, entry.view(filter.Viewer))
	}
	return reports, nil
}

// Count counts reports matching filter
func (s *MemoryReportStore) Count(_ context.Context, filter ReportFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.match(filter)), nil
}

// UpdateStatus sets the status of a report
func (s *MemoryReportStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	entry.report.Status = status
	entry.report.UpdatedAt = time.Now().UTC()
	return entry.view(uuid.Nil), nil
}

// AddUpvote adds userID to the upvoters of a report
func (s *MemoryReportStore) AddUpvote(_ context.Context, reportID, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[reportID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, voted := entry.upvoters[userID]; !voted {
		entry.upvoters[userID] = struct{}{}
		entry.report.UpvoteCount = len(entry.upvoters)
		entry.report.UpdatedAt = time.Now().UTC()
	}
	return entry.report.UpvoteCount, nil
}

// RemoveUpvote removes userID from the upvoters of a report
func (s *MemoryReportStore) RemoveUpvote(_ context.Context, reportID, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[reportID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, voted := entry.upvoters[userID]; voted {
		delete(entry.upvoters, userID)
		entry.report.UpvoteCount = len(entry.upvoters)
		entry.report.UpdatedAt = time.Now().UTC()
	}
	return entry.report.UpvoteCount, nil
}

// AddComment appends a comment to a report
func (s *MemoryReportStore) AddComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[comment.ReportID]
	if !ok {
		return ErrNotFound
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now().UTC()

	stored := *comment
	stored.Author = nil
	entry.comments = append(entry.comments, stored)
	entry.report.UpdatedAt = comment.CreatedAt
	return nil
}

// ListComments retrieves the comments of a report in insertion order
func (s *MemoryReportStore) ListComments(_ context.Context, reportID uuid.UUID) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.reports[reportID]
	if !ok {
		return nil, ErrNotFound
	}

	comments := make([]*models.Comment, 0, len(entry.comments))
	for i := range entry.comments {
		c := entry.comments[i]
		comments = append(comments, &c)
	}
	return comments, nil
}

// match must be called with s.mu held
func (s *MemoryReportStore) match(filter ReportFilter) []*memoryReport {
	search := strings.ToLower(filter.Search)

	matched := make([]*memoryReport, 0)
	for _, entry := range s.reports {
		r := &entry.report
		if filter.District != nil && r.District != *filter.District {
			continue
		}
		if filter.Municipality != nil && r.Municipality != *filter.Municipality {
			continue
		}
		if filter.Department != "" && r.Department != filter.Department {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.District), search) &&
			!strings.Contains(strings.ToLower(r.Municipality), search) {
			continue
		}
		matched = append(matched, entry)
	}
	return matched
}

// view returns a detached copy; must be called with the store mutex held
func (e *memoryReport) view(viewer uuid.UUID) *models.Report {
	out := e.report
	out.Media = append(make(models.MediaAssets, 0, len(e.report.Media)), e.report.Media...)
	out.CommentsCount = len(e.comments)
	if viewer != uuid.Nil {
		_, voted := e.upvoters[viewer]
		out.Upvoted = &voted
	}
	return &out
}

// MemoryUserStore keeps user accounts in process memory
type MemoryUserStore struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*models.User
	byUsername map[string]uuid.UUID
}

// NewMemoryUserStore creates an empty in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:      make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

// Create inserts a new user
func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := s.users[user.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	s.byUsername[user.Username] = user.ID
	return nil
}

// GetByID retrieves a user by ID
func (s *MemoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

// GetByUsername retrieves a user by username
func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// GetByIDs retrieves several users at once, keyed by ID
func (s *MemoryUserStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out := *user
			users[id] = &out
		}
	}
	return users, nil
}

// UpdateLocation sets the district and municipality of a user
func (s *MemoryUserStore) UpdateLocation(_ context.Context, id uuid.UUID, district, municipality string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	user.District = district
	user.Municipality = municipality
	user.UpdatedAt = time.Now().UTC()
	out := *user
	return &out, nil
}

// UpdatePasswordHash replaces the stored password hash
func (s *MemoryUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}
