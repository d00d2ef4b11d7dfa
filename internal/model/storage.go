package model

import "context"

// ObjectStorage stores opaque blobs under string keys.
type ObjectStorage interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
}
