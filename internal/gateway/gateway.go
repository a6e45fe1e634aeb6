// Package gateway abstracts the external blob store and document store the
// submission pipeline writes to. Both are stateless and reentrant; only one
// submission per form is ever in flight, so no local locking is needed.
package gateway

import "context"

// CollectionInterviews is the document collection for interview submissions.
const CollectionInterviews = "interviews"

// BlobStore uploads binary payloads and returns a resolvable URL per object.
// path must be unique per clip.
type BlobStore interface {
	UploadBlob(ctx context.Context, data []byte, path, contentType string, metadata map[string]string) (url string, err error)
}

// DocumentStore writes one document atomically and returns its id. No
// partial or merge semantics.
type DocumentStore interface {
	CreateDocument(ctx context.Context, collection string, record any) (id string, err error)
}
