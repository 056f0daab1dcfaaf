package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicreport-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// reportColumns expects the viewer id as $1
const reportColumns = `
	r.id, r.user_id, r.text, r.address, r.district, r.municipality,
	r.department, r.status, r.media, r.upvote_count,
	(SELECT count(*) FROM report_comments c WHERE c.report_id = r.id) AS comments_count,
	EXISTS (SELECT 1 FROM report_upvotes u WHERE u.report_id = r.id AND u.user_id = $1) AS upvoted,
	r.created_at, r.updated_at`

// ReportRepository handles database operations for reports
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create creates a new report
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = models.StatusReported
	}

	query := `
		INSERT INTO reports (
			id, user_id, text, address, district, municipality,
			department, status, media, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()), COALESCE($10, NOW()))
		RETURNING upvote_count, created_at, updated_at`

	// seeded reports may carry their own timestamp
	var createdAt *time.Time
	if !report.CreatedAt.IsZero() {
		createdAt = &report.CreatedAt
	}

	err := r.db.QueryRow(
		ctx, query,
		report.ID,
		report.UserID,
		report.Text,
		report.Address,
		report.District,
		report.Municipality,
		report.Department,
		report.Status,
		report.Media,
		createdAt,
	).Scan(&report.UpvoteCount, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID, computing Upvoted for viewer when set
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports r WHERE r.id = $2`

	report, err := scanReport(r.db.QueryRow(ctx, query, viewer, id), viewer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// Find lists reports matching filter
func (r *ReportRepository) Find(ctx context.Context, filter ReportFilter) ([]*models.Report, error) {
	where, args := buildReportWhere(filter, 2)
	args = append([]interface{}{filter.Viewer}, args...)

	query := `SELECT ` + reportColumns + ` FROM reports r` + where

	switch filter.Sort {
	case SortPopular:
		query += " ORDER BY r.upvote_count DESC, r.created_at DESC"
	default:
		query += " ORDER BY r.created_at DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows, filter.Viewer)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// Count counts reports matching filter
func (r *ReportRepository) Count(ctx context.Context, filter ReportFilter) (int, error) {
	where, args := buildReportWhere(filter, 1)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM reports r`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

// UpdateStatus sets the status of a report
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	query := `
		UPDATE reports SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id, uuid.Nil)
}

// AddUpvote records userID as an upvoter of the report.
// The report row is locked for the duration so the counter is recomputed from the
// set it guards, never from a stale read.
func (r *ReportRepository) AddUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error) {
	var count int
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockReport(ctx, tx, reportID, &count); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO report_upvotes (report_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (report_id, user_id) DO NOTHING`, reportID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		return syncUpvoteCount(ctx, tx, reportID, &count)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("add upvote: %w", err)
	}
	return count, nil
}

// RemoveUpvote removes userID from the upvoters of the report
func (r *ReportRepository) RemoveUpvote(ctx context.Context, reportID, userID uuid.UUID) (int, error) {
	var count int
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockReport(ctx, tx, reportID, &count); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM report_upvotes WHERE report_id = $1 AND user_id = $2`, reportID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		return syncUpvoteCount(ctx, tx, reportID, &count)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("remove upvote: %w", err)
	}
	return count, nil
}

// AddComment appends a comment to a report
func (r *ReportRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	query := `
		WITH target AS (
			UPDATE reports SET updated_at = NOW()
			WHERE id = $1
			RETURNING id
		)
		INSERT INTO report_comments (report_id, user_id, text)
		SELECT id, $2, $3 FROM target
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, comment.ReportID, comment.UserID, comment.Text).
		Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments retrieves the comments of a report in insertion order
func (r *ReportRepository) ListComments(ctx context.Context, reportID uuid.UUID) ([]*models.Comment, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, reportID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check report: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, report_id, user_id, text, created_at
		FROM report_comments
		WHERE report_id = $1
		ORDER BY seq ASC`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment := &models.Comment{}
		err := rows.Scan(
			&comment.ID,
			&comment.ReportID,
			&comment.UserID,
			&comment.Text,
			&comment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

// lockReport takes the row lock on a report and reads its current upvote count
func lockReport(ctx context.Context, tx pgx.Tx, reportID uuid.UUID, count *int) error {
	err := tx.QueryRow(ctx, `SELECT upvote_count FROM reports WHERE id = $1 FOR UPDATE`, reportID).Scan(count)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// syncUpvoteCount rewrites upvote_count from the size of the upvoter set
func syncUpvoteCount(ctx context.Context, tx pgx.Tx, reportID uuid.UUID, count *int) error {
	query := `
		UPDATE reports SET
			upvote_count = (SELECT count(*) FROM report_upvotes WHERE report_id = $1),
			updated_at = NOW()
		WHERE id = $1
		RETURNING upvote_count`
	return tx.QueryRow(ctx, query, reportID).Scan(count)
}

// buildReportWhere renders filter as a WHERE clause whose placeholders start at argIndex
func buildReportWhere(filter ReportFilter, argIndex int) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, argIndex))
		args = append(args, arg)
		argIndex++
	}

	if filter.District != nil {
		add("r.district = $%d", *filter.District)
	}
	if filter.Municipality != nil {
		add("r.municipality = $%d", *filter.Municipality)
	}
	if filter.Department != "" {
		add("r.department = $%d", filter.Department)
	}
	if filter.Status != "" {
		add("r.status = $%d", filter.Status)
	}
	if filter.UserID != nil {
		add("r.user_id = $%d", *filter.UserID)
	}
	if filter.Search != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(strpos(lower(r.district), lower($%d)) > 0 OR strpos(lower(r.municipality), lower($%d)) > 0)",
			argIndex, argIndex))
		args = append(args, filter.Search)
		argIndex++
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanReport(row pgx.Row, viewer uuid.UUID) (*models.Report, error) {
	report := &models.Report{}
	var upvoted bool
	err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.Text,
		&report.Address,
		&report.District,
		&report.Municipality,
		&report.Department,
		&report.Status,
		&report.Media,
		&report.UpvoteCount,
		&report.CommentsCount,
		&upvoted,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if viewer != uuid.Nil {
		report.Upvoted = &upvoted
	}
	if report.Media == nil {
		report.Media = make(models.MediaAssets, 0)
	}
	return report, nil
}

// pgErrorCode extracts the SQLSTATE from a Postgres error
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
