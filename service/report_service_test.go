package service

import (
	"context"
	"testing"

	"civicreport-backend/events"
	"civicreport-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) reportService() *ReportService {
	return NewReportService(
		WithReportStore(f.reports),
		WithUserStore(f.users),
		WithPublisher(f.publisher),
	)
}

func TestCreateReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	author := f.user(t, "ravi123", "Ranchi", rmc)
	svc := f.reportService()

	res, err := svc.CreateReport(ctx, CreateReportRequest{
		UserID:       author.ID,
		Text:         " Garbage not collected ",
		Address:      "Main Road",
		District:     "Ranchi",
		Municipality: rmc,
		Department:   "Sanitation",
		Media: models.MediaAssets{
			{Type: models.MediaImage, Filename: "1.jpg", URL: "/api/media/1.jpg"},
			{Type: models.MediaVideo, Filename: "2.mp4", URL: "/api/media/2.mp4"},
		},
	})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, models.StatusReported, r.Status)
	assert.Equal(t, "Garbage not collected", r.Text)
	assert.Equal(t, 0, r.UpvoteCount)
	require.Len(t, r.Media, 2)
	assert.Equal(t, "2.mp4", r.Media[1].Filename)
	assert.Equal(t, 1, f.publisher.count(events.SubjectReportCreated))

	got, err := svc.GetReport(ctx, GetReportRequest{ID: r.ID, ViewerID: author.ID})
	require.NoError(t, err)
	require.NotNil(t, got.Report.Upvoted)
	assert.False(t, *got.Report.Upvoted)

	_, err = svc.GetReport(ctx, GetReportRequest{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestCreateReportValidation(t *testing.T) {
	f := newFixture()
	author := f.user(t, "ravi123", "Ranchi", rmc)
	svc := f.reportService()

	valid := CreateReportRequest{UserID: author.ID, District: "Ranchi", Municipality: rmc, Department: "Drainage"}

	bad := valid
	bad.Department = "Parks"
	_, err := svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = valid
	bad.District = "  "
	_, err = svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = valid
	bad.Municipality = ""
	_, err = svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = valid
	bad.Media = models.MediaAssets{{Type: "spreadsheet", Filename: "a.xls"}}
	_, err = svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = valid
	bad.Media = models.MediaAssets{{Type: models.MediaImage, Filename: " "}}
	_, err = svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = valid
	bad.UserID = uuid.New()
	_, err = svc.CreateReport(context.Background(), bad)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// district and municipality are free strings on reports
	free := valid
	free.District = "Somewhere"
	free.Municipality = "Not In Table"
	_, err = svc.CreateReport(context.Background(), free)
	assert.NoError(t, err)
}

func TestMyReportsAndStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	author := f.user(t, "ravi123", "Ranchi", rmc)
	svc := f.reportService()

	var created []*models.Report
	for i := 0; i < 3; i++ {
		res, err := svc.CreateReport(ctx, CreateReportRequest{
			UserID: author.ID, District: "Ranchi", Municipality: rmc, Department: "Electricity",
		})
		require.NoError(t, err)
		created = append(created, res.Report)
	}
	f.report(t, uuid.New(), "Ranchi", rmc, models.DepartmentElectricity, created[0].CreatedAt)

	_, err := f.admin().UpdateStatus(ctx, UpdateStatusRequest{ReportID: created[1].ID, Status: "resolved"})
	require.NoError(t, err)

	mine, err := svc.MyReports(ctx, MyReportsRequest{UserID: author.ID})
	require.NoError(t, err)
	assert.Len(t, mine.Reports, 3)

	resolved, err := svc.MyReports(ctx, MyReportsRequest{UserID: author.ID, Status: "resolved"})
	require.NoError(t, err)
	require.Len(t, resolved.Reports, 1)
	assert.Equal(t, created[1].ID, resolved.Reports[0].ID)

	_, err = svc.MyReports(ctx, MyReportsRequest{UserID: author.ID, Status: "done"})
	assert.ErrorIs(t, err, ErrValidation)

	stats, err := svc.Stats(ctx, StatsRequest{UserID: author.ID})
	require.NoError(t, err)
	assert.Equal(t, &StatsResult{TotalReported: 3, TotalResolved: 1}, stats)
}
