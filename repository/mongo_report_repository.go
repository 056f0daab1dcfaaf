package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"civicreport-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoReport is the stored shape of a report. Upvoters and comments are embedded
// so that every engagement write is a single-document atomic update.
type mongoReport struct {
	ID           string              `bson:"_id"`
	UserID       string              `bson:"user"`
	Text         string              `bson:"text"`
	Address      string              `bson:"address"`
	District     string              `bson:"district"`
	Municipality string              `bson:"municipality"`
	Department   models.Department   `bson:"department"`
	Status       models.ReportStatus `bson:"status"`
	Media        models.MediaAssets  `bson:"media"`
	UpvoteCount  int                 `bson:"upvoteCount"`
	UpvotedBy    []string            `bson:"upvotedBy"`
	Comments     []mongoComment      `bson:"comments"`
	CreatedAt    time.Time           `bson:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt"`
}

type mongoComment struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

// mongoReportView is what the read pipeline emits: the stored report minus its
// upvoter and comment arrays, plus the values derived from them.
type mongoReportView struct {
	ID            string              `bson:"_id"`
	UserID        string              `bson:"user"`
	Text          string              `bson:"text"`
	Address       string              `bson:"address"`
	District      string              `bson:"district"`
	Municipality  string              `bson:"municipality"`
	Department    models.Department   `bson:"department"`
	Status        models.ReportStatus `bson:"status"`
	Media         models.MediaAssets  `bson:"media"`
	UpvoteCount   int                 `bson:"upvoteCount"`
	CommentsCount int                 `bson:"commentsCount"`
	Upvoted       bool                `bson:"upvoted"`
	CreatedAt     time.Time           `bson:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt"`
}

// MongoReportRepository stores reports in a MongoDB collection
type MongoReportRepository struct {
	col *mongo.Collection
}

// NewMongoReportRepository creates a report repository on db
func NewMongoReportRepository(db *mongo.Database) *MongoReportRepository {
	return &MongoReportRepository{col: db.Collection(mongoReportsCollection)}
}

// Create inserts a new report
func (r *MongoReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = models.StatusReported
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	report.UpdatedAt = report.CreatedAt
	report.UpvoteCount = 0
	report.CommentsCount = 0
	if report.Media == nil {
		report.Media = make(models.MediaAssets, 0)
	}

	doc := mongoReport{
		ID:           report.ID.String(),
		UserID:       report.UserID.String(),
		Text:         report.Text,
		Address:      report.Address,
		District:     report.District,
		Municipality: report.Municipality,
		Department:   report.Department,
		Status:       report.Status,
		Media:        report.Media,
		UpvotedBy:    []string{},
		Comments:     []mongoComment{},
		CreatedAt:    report.CreatedAt,
		UpdatedAt:    report.UpdatedAt,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID, computing Upvoted for viewer when set
func (r *MongoReportRepository) GetByID(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*models.Report, error) {
	reports, err := r.aggregate(ctx, bson.M{"_id": id.String()}, nil, 1, viewer)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0], nil
}

// Find lists reports matching filter
func (r *MongoReportRepository) Find(ctx context.Context, filter ReportFilter) ([]*models.Report, error) {
	sort := bson.D{{Key: "createdAt", Value: -1}}
	if filter.Sort == SortPopular {
		sort = bson.D{{Key: "upvoteCount", Value: -1}, {Key: "createdAt", Value: -1}}
	}

	reports, err := r.aggregate(ctx, mongoReportFilter(filter), sort, filter.Limit, filter.Viewer)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	return reports, nil
}

// Count counts reports matching filter
func (r *MongoReportRepository) Count(ctx context.Context, filter ReportFilter) (int, error) {
	n, err := r.col.CountDocuments(ctx, mongoReportFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return int(n), nil
}

// UpdateStatus sets the status of a report
func (r *MongoReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id, uuid.Nil)
}

// AddUpvote adds userID to the upvoters. The filter only matches while userID is
// absent, so the push and the counter increment happen together or not at all.
func (r *MongoReportRepository) AddUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error) {
	uid := userID.String()
	filter := bson.M{"_id": reportID.String(), "upvotedBy": bson.M{"$ne": uid}}
	update := bson.M{
		"$push": bson.M{"upvotedBy": uid},
		"$inc":  bson.M{"upvoteCount": 1},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.applyUpvote(ctx, reportID, filter, update)
}

// RemoveUpvote removes userID from the upvoters
func (r *MongoReportRepository) RemoveUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error) {
	uid := userID.String()
	filter := bson.M{"_id": reportID.String(), "upvotedBy": uid}
	update := bson.M{
		"$pull": bson.M{"upvotedBy": uid},
		"$inc":  bson.M{"upvoteCount": -1},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.applyUpvote(ctx, reportID, filter, update)
}

func (r *MongoReportRepository) applyUpvote(ctx context.Context, reportID uuid.UUID, filter, update bson.M) (int, error) {
	var doc struct {
		UpvoteCount int `bson:"upvoteCount"`
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"upvoteCount": 1})

	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.UpvoteCount, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("update upvotes: %w", err)
	}

	// no-op toggle, or the report does not exist
	err = r.col.FindOne(ctx,
		bson.M{"_id": reportID.String()},
		options.FindOne().SetProjection(bson.M{"upvoteCount": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("read upvotes: %w", err)
	}
	return doc.UpvoteCount, nil
}

// AddComment appends a comment to a report
func (r *MongoReportRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	entry := mongoComment{
		ID:        comment.ID.String(),
		UserID:    comment.UserID.String(),
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": comment.ReportID.String()},
		bson.M{
			"$push": bson.M{"comments": entry},
			"$set":  bson.M{"updatedAt": comment.CreatedAt},
		},
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListComments retrieves the comments of a report in insertion order
func (r *MongoReportRepository) ListComments(ctx context.Context, reportID uuid.UUID) ([]*models.Comment, error) {
	var doc struct {
		Comments []mongoComment `bson:"comments"`
	}

	err := r.col.FindOne(ctx,
		bson.M{"_id": reportID.String()},
		options.FindOne().SetProjection(bson.M{"comments": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query comments: %w", err)
	}

	comments := make([]*models.Comment, 0, len(doc.Comments))
	for _, c := range doc.Comments {
		id, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, fmt.Errorf("decode comment id %q: %w", c.ID, err)
		}
		userID, err := uuid.Parse(c.UserID)
		if err != nil {
			return nil, fmt.Errorf("decode comment author %q: %w", c.UserID, err)
		}
		comments = append(comments, &models.Comment{
			ID:        id,
			ReportID:  reportID,
			UserID:    userID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	return comments, nil
}

// aggregate runs the read pipeline. The upvoter and comment arrays are reduced to
// Upvoted and CommentsCount inside the server and never decoded.
func (r *MongoReportRepository) aggregate(ctx context.Context, match bson.M, sort bson.D, limit int, viewer uuid.UUID) ([]*models.Report, error) {
	viewerID := ""
	if viewer != uuid.Nil {
		viewerID = viewer.String()
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"user":          1,
		"text":          1,
		"address":       1,
		"district":      1,
		"municipality":  1,
		"department":    1,
		"status":        1,
		"media":         1,
		"upvoteCount":   1,
		"createdAt":     1,
		"updatedAt":     1,
		"upvoted":       bson.M{"$in": bson.A{viewerID, bson.M{"$ifNull": bson.A{"$upvotedBy", bson.A{}}}}},
		"commentsCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$comments", bson.A{}}}},
	}}})

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := make([]*models.Report, 0)
	for cur.Next(ctx) {
		var view mongoReportView
		if err := cur.Decode(&view); err != nil {
			return nil, err
		}
		report, err := view.toModel(viewer)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, cur.Err()
}

func (v mongoReportView) toModel(viewer uuid.UUID) (*models.Report, error) {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("decode report id %q: %w", v.ID, err)
	}
	userID, err := uuid.Parse(v.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode report author %q: %w", v.UserID, err)
	}

	report := &models.Report{
		ID:            id,
		UserID:        userID,
		Text:          v.Text,
		Address:       v.Address,
		District:      v.District,
		Municipality:  v.Municipality,
		Department:    v.Department,
		Status:        v.Status,
		Media:         v.Media,
		UpvoteCount:   v.UpvoteCount,
		CommentsCount: v.CommentsCount,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if report.Media == nil {
		report.Media = make(models.MediaAssets, 0)
	}
	if viewer != uuid.Nil {
		upvoted := v.Upvoted
		report.Upvoted = &upvoted
	}
	return report, nil
}

func mongoReportFilter(f ReportFilter) bson.M {
	filter := bson.M{}
	if f.District != nil {
		filter["district"] = *f.District
	}
	if f.Municipality != nil {
		filter["municipality"] = *f.Municipality
	}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != nil {
		filter["user"] = f.UserID.String()
	}
	if f.Search != "" {
		// literal, case-insensitive substring
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = []bson.M{
			{"district": re},
			{"municipality": re},
		}
	}
	return filter
}
