package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// reports.user_id and the comment/upvote user_id columns carry no foreign key to users:
// removing an account must leave its reports and comments in place.
var postgresTables = []struct {
	name string
	sql  string
}{
	{
		name: "users",
		sql: `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username VARCHAR(64) UNIQUE NOT NULL,
    mobile_number VARCHAR(32) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    district VARCHAR(128) NOT NULL DEFAULT '',
    municipality VARCHAR(128) NOT NULL DEFAULT '',
    is_admin BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		name: "reports",
		sql: `
CREATE TABLE IF NOT EXISTS reports (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    district VARCHAR(128) NOT NULL,
    municipality VARCHAR(128) NOT NULL,
    department VARCHAR(32) NOT NULL CHECK (department IN ('Sanitation', 'Engineering', 'Drainage', 'WaterSupply', 'Electricity')),
    status VARCHAR(32) NOT NULL DEFAULT 'reported' CHECK (status IN ('reported', 'acknowledged', 'in_progress', 'resolved')),
    media JSONB NOT NULL DEFAULT '[]'::jsonb,
    upvote_count INTEGER NOT NULL DEFAULT 0 CHECK (upvote_count >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		name: "report_upvotes",
		sql: `
CREATE TABLE IF NOT EXISTS report_upvotes (
    report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (report_id, user_id)
);`,
	},
	{
		name: "report_comments",
		sql: `
CREATE TABLE IF NOT EXISTS report_comments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    seq BIGSERIAL,
    report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
}

var postgresIndexes = []struct {
	name string
	sql  string
}{
	{
		name: "Reports by author",
		sql:  "CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at DESC);",
	},
	{
		name: "Local feed",
		sql:  "CREATE INDEX IF NOT EXISTS idx_reports_location_created ON reports(district, municipality, created_at DESC);",
	},
	{
		name: "Admin popularity listing",
		sql: `CREATE INDEX IF NOT EXISTS idx_reports_admin_popularity
    ON reports(department, district, municipality, upvote_count DESC, created_at DESC);`,
	},
	{
		name: "Comments in display order",
		sql:  "CREATE INDEX IF NOT EXISTS idx_report_comments_report_seq ON report_comments(report_id, seq);",
	},
}

// EnsurePostgresSchema creates the tables and indexes used by the Postgres stores.
// Table failures abort; index failures are logged and skipped.
func EnsurePostgresSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, tbl := range postgresTables {
		if _, err := db.Exec(ctx, tbl.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", tbl.name, err)
		}
		log.Printf("schema: table %s ready", tbl.name)
	}

	for _, idx := range postgresIndexes {
		if _, err := db.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("schema: index ready: %s", idx.name)
		}
	}
	return nil
}
