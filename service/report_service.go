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

// ReportService handles report submission and a citizen's own views
type ReportService struct {
	reports   repository.ReportStore
	users     repository.UserStore
	publisher events.Publisher
}

// ReportServiceOption is a functional option for ReportService
type ReportServiceOption func(*ReportService)

// WithReportStore sets the report store
func WithReportStore(store repository.ReportStore) ReportServiceOption {
	return func(s *ReportService) {
		s.reports = store
	}
}

// WithUserStore sets the user store used to check the author
func WithUserStore(store repository.UserStore) ReportServiceOption {
	return func(s *ReportService) {
		s.users = store
	}
}

// WithPublisher sets the event publisher
func WithPublisher(p events.Publisher) ReportServiceOption {
	return func(s *ReportService) {
		s.publisher = p
	}
}

// NewReportService creates a new report service
func NewReportService(opts ...ReportServiceOption) *ReportService {
	s := &ReportService{publisher: events.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReportRequest represents a request to submit a report. Media must already
// be persisted in blob storage.
type CreateReportRequest struct {
	UserID       uuid.UUID
	Text         string
	Address      string
	District     string
	Municipality string
	Department   string
	Media        models.MediaAssets
}

// CreateReportResult represents the result of submitting a report
type CreateReportResult struct {
	Report *models.Report
}

// CreateReport submits a new report in status reported
func (s *ReportService) CreateReport(ctx context.Context, req CreateReportRequest) (*CreateReportResult, error) {
	if s.reports == nil || s.users == nil {
		return nil, errors.New("report stores not set")
	}

	department := models.Department(strings.TrimSpace(req.Department))
	if !department.Valid() {
		return nil, validationError("department must be one of Sanitation, Engineering, Drainage, WaterSupply, Electricity")
	}
	district := strings.TrimSpace(req.District)
	municipality := strings.TrimSpace(req.Municipality)
	if district == "" || municipality == "" {
		return nil, validationError("district and municipality are required")
	}

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	media := req.Media
	if media == nil {
		media = make(models.MediaAssets, 0)
	}
	for i, asset := range media {
		if asset.Type != models.MediaImage && asset.Type != models.MediaVideo {
			return nil, validationError("media[%d]: type must be image or video", i)
		}
		if strings.TrimSpace(asset.Filename) == "" {
			return nil, validationError("media[%d]: filename is required", i)
		}
	}

	report := &models.Report{
		UserID:       req.UserID,
		Text:         strings.TrimSpace(req.Text),
		Address:      strings.TrimSpace(req.Address),
		District:     district,
		Municipality: municipality,
		Department:   department,
		Status:       models.StatusReported,
		Media:        media,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	event := events.Event{
		ReportID:     report.ID,
		ActorID:      report.UserID,
		District:     report.District,
		Municipality: report.Municipality,
		Department:   string(report.Department),
		Status:       string(report.Status),
		OccurredAt:   report.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.SubjectReportCreated, event); err != nil {
		log.Printf("report: publish created event for report %s: %v", report.ID, err)
	}

	return &CreateReportResult{Report: report}, nil
}

// GetReportRequest represents a request to read one report
type GetReportRequest struct {
	ID       uuid.UUID
	ViewerID uuid.UUID
}

// GetReportResult represents the result of reading one report
type GetReportResult struct {
	Report *models.Report
}

// GetReport retrieves a report, marking whether the viewer upvoted it
func (s *ReportService) GetReport(ctx context.Context, req GetReportRequest) (*GetReportResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	report, err := s.reports.GetByID(ctx, req.ID, req.ViewerID)
	if err != nil {
		return nil, reportErr(err)
	}
	return &GetReportResult{Report: report}, nil
}

// MyReportsRequest represents a request for the caller's own reports
type MyReportsRequest struct {
	UserID uuid.UUID
	Status string
}

// MyReportsResult holds the caller's reports, newest first
type MyReportsResult struct {
	Reports []*models.Report
}

// MyReports lists the caller's reports, optionally only those in one status
func (s *ReportService) MyReports(ctx context.Context, req MyReportsRequest) (*MyReportsResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	status := models.ReportStatus(strings.TrimSpace(req.Status))
	if status != "" && !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}

	userID := req.UserID
	reports, err := s.reports.Find(ctx, repository.ReportFilter{
		UserID: &userID,
		Status: status,
		Viewer: userID,
		Sort:   repository.SortNewest,
	})
	if err != nil {
		return nil, err
	}
	return &MyReportsResult{Reports: reports}, nil
}

// StatsRequest represents a request for the caller's report counters
type StatsRequest struct {
	UserID uuid.UUID
}

// StatsResult holds the caller's report counters
type StatsResult struct {
	TotalReported int `json:"totalReported"`
	TotalResolved int `json:"totalResolved"`
}

// Stats counts the caller's reports and how many of them are resolved
func (s *ReportService) Stats(ctx context.Context, req StatsRequest) (*StatsResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	userID := req.UserID
	total, err := s.reports.Count(ctx, repository.ReportFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	resolved, err := s.reports.Count(ctx, repository.ReportFilter{UserID: &userID, Status: models.StatusResolved})
	if err != nil {
		return nil, err
	}
	return &StatsResult{TotalReported: total, TotalResolved: resolved}, nil
}
