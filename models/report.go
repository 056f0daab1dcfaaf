package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Department categorizes the municipal domain a report belongs to
type Department string

const (
	DepartmentSanitation  Department = "Sanitation"
	DepartmentEngineering Department = "Engineering"
	DepartmentDrainage    Department = "Drainage"
	DepartmentWaterSupply Department = "WaterSupply"
	DepartmentElectricity Department = "Electricity"
)

// Departments lists every accepted department in display order
var Departments = []Department{
	DepartmentSanitation,
	DepartmentEngineering,
	DepartmentDrainage,
	DepartmentWaterSupply,
	DepartmentElectricity,
}

// Valid reports whether d is one of the known departments
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// ReportStatus represents the triage status of a report
type ReportStatus string

const (
	StatusReported     ReportStatus = "reported"
	StatusAcknowledged ReportStatus = "acknowledged"
	StatusInProgress   ReportStatus = "in_progress"
	StatusResolved     ReportStatus = "resolved"
)

// Statuses lists every report status in workflow order
var Statuses = []ReportStatus{
	StatusReported,
	StatusAcknowledged,
	StatusInProgress,
	StatusResolved,
}

// Valid reports whether s is one of the known statuses
func (s ReportStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// MediaType distinguishes photos from videos
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaTypeFor classifies an upload by its MIME type
func MediaTypeFor(mimeType string) MediaType {
	if strings.HasPrefix(strings.ToLower(mimeType), "video") {
		return MediaVideo
	}
	return MediaImage
}

// MediaAsset describes one uploaded file attached to a report
type MediaAsset struct {
	Type         MediaType `json:"type" bson:"type"`
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"originalName,omitempty" bson:"originalName,omitempty"`
	MimeType     string    `json:"mimeType,omitempty" bson:"mimeType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes" bson:"sizeBytes"`
	URL          string    `json:"url" bson:"url"`
}

// MediaAssets is the ordered media list of a report, stored as JSONB
type MediaAssets []MediaAsset

// Value implements driver.Valuer for JSONB
func (m MediaAssets) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *MediaAssets) Scan(value interface{}) error {
	if value == nil {
		*m = make(MediaAssets, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = make(MediaAssets, 0)
		return nil
	}

	if len(bytes) == 0 {
		*m = make(MediaAssets, 0)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// CommentAuthor is the public view of a comment's author
type CommentAuthor struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username,omitempty"`
	MobileNumber string    `json:"mobileNumber,omitempty"`
}

// Comment is an append-only remark on a report
type Comment struct {
	ID        uuid.UUID      `json:"id"`
	ReportID  uuid.UUID      `json:"reportId"`
	UserID    uuid.UUID      `json:"userId"`
	Author    *CommentAuthor `json:"author,omitempty"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Report is a citizen complaint about a municipal problem.
//
// The set of users who upvoted a report never leaves the store; readers only see
// UpvoteCount and, when the read is made on behalf of a user, Upvoted.
type Report struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"userId"`
	Text         string       `json:"text"`
	Address      string       `json:"address"`
	District     string       `json:"district"`
	Municipality string       `json:"municipality"`
	Department   Department   `json:"department"`
	Status       ReportStatus `json:"status"`
	Media        MediaAssets  `json:"media"`

	UpvoteCount   int   `json:"upvoteCount"`
	CommentsCount int   `json:"commentsCount"`
	Upvoted       *bool `json:"upvoted,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
