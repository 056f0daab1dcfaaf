package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"civicreport-backend/events"
	"civicreport-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpvoteIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.engagement()

	author := f.user(t, "ravi123", "Ranchi", "Ranchi")
	voter := f.user(t, "priya456", "Ranchi", "Ranchi")
	report := f.report(t, author.ID, "Ranchi", "Ranchi", models.DepartmentSanitation, time.Time{})

	req := UpvoteRequest{ReportID: report.ID, UserID: voter.ID}

	res, err := svc.Upvote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, &UpvoteResult{UpvoteCount: 1, Upvoted: true}, res)

	res, err = svc.Upvote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpvoteCount)

	res, err = svc.Unupvote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, &UpvoteResult{UpvoteCount: 0, Upvoted: false}, res)

	res, err = svc.Unupvote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.UpvoteCount)

	_, err = svc.Upvote(ctx, UpvoteRequest{ReportID: uuid.New(), UserID: voter.ID})
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = svc.Unupvote(ctx, UpvoteRequest{ReportID: uuid.New(), UserID: voter.ID})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestConcurrentUpvotesThroughService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.engagement()
	report := f.report(t, uuid.New(), "Ranchi", "Ranchi", models.DepartmentSanitation, time.Time{})

	const voters = 100
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voter := uuid.New()
			_, _ = svc.Upvote(ctx, UpvoteRequest{ReportID: report.ID, UserID: voter})
			_, _ = svc.Upvote(ctx, UpvoteRequest{ReportID: report.ID, UserID: voter})
		}()
	}
	wg.Wait()

	got, err := f.reports.GetByID(ctx, report.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, voters, got.UpvoteCount)
}

func TestAddComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.engagement()

	author := f.user(t, "amit_kumar", "Ranchi", "Ranchi")
	report := f.report(t, author.ID, "Ranchi", "Ranchi", models.DepartmentDrainage, time.Time{})

	res, err := svc.AddComment(ctx, AddCommentRequest{ReportID: report.ID, UserID: author.ID, Text: "  Still blocked  "})
	require.NoError(t, err)
	assert.Equal(t, "Still blocked", res.Comment.Text)
	assert.NotEqual(t, uuid.Nil, res.Comment.ID)
	require.NotNil(t, res.Comment.Author)
	assert.Equal(t, author.MobileNumber, res.Comment.Author.MobileNumber)
	assert.Equal(t, 1, f.publisher.count(events.SubjectReportCommented))

	_, err = svc.AddComment(ctx, AddCommentRequest{ReportID: report.ID, UserID: author.ID, Text: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddComment(ctx, AddCommentRequest{ReportID: uuid.New(), UserID: author.ID, Text: "hello"})
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.Equal(t, 1, f.publisher.count(events.SubjectReportCommented))
}

func TestListCommentsResolvesAuthors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.engagement()

	first := f.user(t, "sunita_yadav", "Ranchi", "Ranchi")
	second := f.user(t, "deepak_singh", "Ranchi", "Ranchi")
	report := f.report(t, first.ID, "Ranchi", "Ranchi", models.DepartmentDrainage, time.Time{})
	ghost := uuid.New()

	for _, c := range []AddCommentRequest{
		{ReportID: report.ID, UserID: first.ID, Text: "one"},
		{ReportID: report.ID, UserID: second.ID, Text: "two"},
		{ReportID: report.ID, UserID: ghost, Text: "three"},
		{ReportID: report.ID, UserID: first.ID, Text: "four"},
	} {
		_, err := svc.AddComment(ctx, c)
		require.NoError(t, err)
	}

	res, err := svc.ListComments(ctx, ListCommentsRequest{ReportID: report.ID})
	require.NoError(t, err)
	require.Len(t, res.Comments, 4)

	texts := make([]string, 0, 4)
	for _, c := range res.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, texts)

	assert.Equal(t, first.MobileNumber, res.Comments[0].Author.MobileNumber)
	assert.Equal(t, second.Username, res.Comments[1].Author.Username)
	assert.Equal(t, ghost, res.Comments[2].Author.ID)
	assert.Empty(t, res.Comments[2].Author.MobileNumber)

	_, err = svc.ListComments(ctx, ListCommentsRequest{ReportID: uuid.New()})
	assert.ErrorIs(t, err, ErrReportNotFound)
}
