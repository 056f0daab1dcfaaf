package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"civicreport-backend/events"
	"civicreport-backend/models"
	"civicreport-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published event for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]events.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[string][]events.Event)}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[subject] = append(p.events[subject], e)
	return nil
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[subject])
}

type fixture struct {
	reports   *repository.MemoryReportStore
	users     *repository.MemoryUserStore
	publisher *recordingPublisher
}

func newFixture() *fixture {
	return &fixture{
		reports:   repository.NewMemoryReportStore(),
		users:     repository.NewMemoryUserStore(),
		publisher: newRecordingPublisher(),
	}
}

func (f *fixture) user(t *testing.T, username, district, municipality string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		MobileNumber: "98765" + username,
		PasswordHash: "unused",
		District:     district,
		Municipality: municipality,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) report(t *testing.T, author uuid.UUID, district, municipality string, department models.Department, createdAt time.Time) *models.Report {
	t.Helper()
	r := &models.Report{
		UserID:       author,
		Text:         "Streetlight not working",
		District:     district,
		Municipality: municipality,
		Department:   department,
		CreatedAt:    createdAt,
	}
	require.NoError(t, f.reports.Create(context.Background(), r))
	return r
}

func (f *fixture) engagement() *EngagementService {
	return NewEngagementService(
		EngagementWithReportStore(f.reports),
		EngagementWithUserStore(f.users),
		EngagementWithPublisher(f.publisher),
	)
}

func (f *fixture) feed(opts ...FeedServiceOption) *FeedService {
	return NewFeedService(append([]FeedServiceOption{
		FeedWithReportStore(f.reports),
		FeedWithUserStore(f.users),
	}, opts...)...)
}

func (f *fixture) admin(opts ...AdminServiceOption) *AdminService {
	return NewAdminService(append([]AdminServiceOption{
		AdminWithReportStore(f.reports),
		AdminWithUserStore(f.users),
		AdminWithPublisher(f.publisher),
	}, opts...)...)
}
