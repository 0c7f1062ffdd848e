package domain

import "context"

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}
