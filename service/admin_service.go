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

// AdminService handles triage operations: the popularity listing per department
// and location, and status updates
type AdminService struct {
	reports      repository.ReportStore
	users        repository.UserStore
	publisher    events.Publisher
	transitions  models.StatusTransitions
	enforceAdmin bool
}

// AdminServiceOption is a functional option for AdminService
type AdminServiceOption func(*AdminService)

// AdminWithReportStore sets the report store
func AdminWithReportStore(store repository.ReportStore) AdminServiceOption {
	return func(s *AdminService) {
		s.reports = store
	}
}

// AdminWithUserStore sets the user store used by the admin role check
func AdminWithUserStore(store repository.UserStore) AdminServiceOption {
	return func(s *AdminService) {
		s.users = store
	}
}

// AdminWithPublisher sets the event publisher
func AdminWithPublisher(p events.Publisher) AdminServiceOption {
	return func(s *AdminService) {
		s.publisher = p
	}
}

// AdminWithTransitions restricts status updates to the given table
func AdminWithTransitions(t models.StatusTransitions) AdminServiceOption {
	return func(s *AdminService) {
		s.transitions = t
	}
}

// AdminWithRoleCheck requires callers to be flagged as administrators
func AdminWithRoleCheck(enforce bool) AdminServiceOption {
	return func(s *AdminService) {
		s.enforceAdmin = enforce
	}
}

// NewAdminService creates a new admin service
func NewAdminService(opts ...AdminServiceOption) *AdminService {
	s := &AdminService{publisher: events.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListByLocationRequest represents a request for the popularity listing
type ListByLocationRequest struct {
	ActorID      uuid.UUID
	Department   string
	District     string
	Municipality string
}

// ListByLocationResult holds reports, most upvoted first
type ListByLocationResult struct {
	Reports []*models.Report
}

// ListByLocation returns every report of a department in one location, ordered by
// upvote count and then by recency
func (s *AdminService) ListByLocation(ctx context.Context, req ListByLocationRequest) (*ListByLocationResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	department := models.Department(strings.TrimSpace(req.Department))
	district := strings.TrimSpace(req.District)
	municipality := strings.TrimSpace(req.Municipality)
	if department == "" || district == "" || municipality == "" {
		return nil, validationError("department, district and municipality are required")
	}
	if !department.Valid() {
		return nil, validationError("unknown department %q", department)
	}

	if err := s.requireAdmin(ctx, req.ActorID); err != nil {
		return nil, err
	}

	reports, err := s.reports.Find(ctx, repository.ReportFilter{
		District:     repository.StringPtr(district),
		Municipality: repository.StringPtr(municipality),
		Department:   department,
		Sort:         repository.SortPopular,
	})
	if err != nil {
		return nil, err
	}
	return &ListByLocationResult{Reports: reports}, nil
}

// UpdateStatusRequest represents a request to change a report's status
type UpdateStatusRequest struct {
	ActorID  uuid.UUID
	ReportID uuid.UUID
	Status   string
}

// UpdateStatusResult represents the result of a status change
type UpdateStatusResult struct {
	Report *models.Report
}

// UpdateStatus sets a report's status. The transition table is consulted against
// the status read just before the write; concurrent updates are last-writer-wins.
func (s *AdminService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	if s.reports == nil {
		return nil, errors.New("report store not set")
	}

	status := models.ReportStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		return nil, validationError("status must be one of reported, acknowledged, in_progress, resolved")
	}

	if err := s.requireAdmin(ctx, req.ActorID); err != nil {
		return nil, err
	}

	current, err := s.reports.GetByID(ctx, req.ReportID, uuid.Nil)
	if err != nil {
		return nil, reportErr(err)
	}
	if !s.transitions.Allows(current.Status, status) {
		return nil, ErrTransitionNotAllowed
	}

	report, err := s.reports.UpdateStatus(ctx, req.ReportID, status)
	if err != nil {
		return nil, reportErr(err)
	}

	if current.Status != status {
		event := events.Event{
			ReportID:     report.ID,
			ActorID:      req.ActorID,
			District:     report.District,
			Municipality: report.Municipality,
			Department:   string(report.Department),
			Status:       string(status),
			FromStatus:   string(current.Status),
			OccurredAt:   report.UpdatedAt,
		}
		if err := s.publisher.Publish(ctx, events.SubjectReportStatusChanged, event); err != nil {
			log.Printf("admin: publish status change for report %s: %v", report.ID, err)
		}
	}

	return &UpdateStatusResult{Report: report}, nil
}

func (s *AdminService) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	if !s.enforceAdmin {
		return nil
	}
	if s.users == nil {
		return errors.New("user store not set")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}
