package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Download when no blob exists at the path
var ErrNotFound = errors.New("media not found")

// Storage stores report media blobs
type Storage interface {
	// Upload stores a blob and returns its storage path
	Upload(ctx context.Context, mediaID uuid.UUID, filename, contentType string, data io.Reader) (string, error)

	// Download opens a blob by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a blob by storage path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Endpoint   string // Optional, e.g. http://localstack:4566
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv() (Storage, error) {
	cfg := StorageConfig{
		Type:         StorageType(getenv("STORAGE_TYPE", string(StorageTypeLocal))),
		LocalPath:    getenv("STORAGE_LOCAL_PATH", "./uploads"),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		S3Region:     getenv("AWS_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("AWS_ENDPOINT_URL"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	return NewStorage(cfg)
}

// MediaURL joins the public media prefix and a storage path
func MediaURL(baseURL, storagePath string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(storagePath, "/")
}

// ContentTypeFor guesses a media content type from the file extension
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".3gp":
		return "video/3gpp"
	default:
		return "application/octet-stream"
	}
}

// generateStoragePath derives a unique path from the media id. Only the extension
// of the client's filename is kept.
func generateStoragePath(mediaID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if strings.ContainsAny(ext, `/\ `) || len(ext) > 10 {
		ext = ""
	}
	id := mediaID.String()
	return fmt.Sprintf("%s/%s%s", id[:2], id, ext)
}

// cleanStoragePath roots the path so it cannot escape the storage base
func cleanStoragePath(storagePath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(storagePath, `\`, "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, storagePath)
	}
	return cleaned, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
