package gateway

import (
	"bytes"
	"context"

	"github.com/voiceform/backend/pkg/storage"
)

// S3BlobStore adapts the S3 client to the BlobStore interface.
type S3BlobStore struct {
	s3 *storage.S3
}

// NewS3BlobStore creates a blob store backed by the media bucket.
func NewS3BlobStore(s3 *storage.S3) *S3BlobStore {
	return &S3BlobStore{s3: s3}
}

// UploadBlob uploads one clip payload and returns its object URL.
func (s *S3BlobStore) UploadBlob(ctx context.Context, data []byte, path, contentType string, metadata map[string]string) (string, error) {
	return s.s3.Upload(ctx, path, contentType, bytes.NewReader(data), int64(len(data)), metadata)
}
