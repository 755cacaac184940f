package files

import (
	"context"
	"io"
)

// BlobStore keeps file contents. Blobs are grouped by namespace (one per
// room incarnation, see store.Room.Namespace) and addressed by the opaque locator Put returns.
type BlobStore interface {
	Put(ctx context.Context, namespace, name string, r io.Reader) (locator string, size int64, err error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}
