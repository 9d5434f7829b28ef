// Package storage is the object store gateway. Uploaded files are kept under
// {candidateId}/{documentId}.{ext} in a single bucket.
package storage

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// ObjectStore stores and retrieves opaque blobs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	EnsureBucket(ctx context.Context, bucket string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

const defaultExtension = "bin"

// ObjectKey derives the key for a document's file. The extension is taken
// from the uploaded filename.
func ObjectKey(candidateID, documentID, filename string) string {
	return candidateID + "/" + documentID + "." + Extension(filename)
}

// CandidatePrefix is the key prefix that holds all files of a candidate.
func CandidatePrefix(candidateID string) string {
	return candidateID + "/"
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// ContentTypeFor guesses a content type from the filename when the transport
// did not provide one.
func ContentTypeFor(filename string) string {
	switch Extension(filename) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "xls":
		return "application/vnd.ms-excel"
	case "csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
