package cloudwriter

import "context"

// ObjectWriter accumulates one result artifact and persists it as a single
// object on Close.
type ObjectWriter interface {
	Write(p []byte) (int, error)
	Close() error
}

// Factory opens writers for result objects in a storage bucket.
type Factory interface {
	NewWriter(ctx context.Context, bucket, key string) (ObjectWriter, error)
}
