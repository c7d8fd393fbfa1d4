package provider

import (
	"context"
	"io"
	"time"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectPutter can create/overwrite objects.
type ObjectPutter interface {
	PutObject(ctx context.Context, container, key string, body io.Reader, contentLength int64, contentType string) error
}

// ObjectDeleter can delete objects.
//
// Deleting a missing object is not an error for callers of the explorer; the
// provider still reports ErrNotFound so callers can tell the cases apart.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, container, key string) error
}

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, container, key string) (body io.ReadCloser, contentLength int64, err error)
}

// LinkResolver produces a time-bounded URL granting read access to one object.
//
// The link is used for previews and as the source of a copy.
type LinkResolver interface {
	PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error)
}

// CopyProgressFunc receives server-side copy progress. total is -1 when unknown.
type CopyProgressFunc func(copied, total int64)

// URLCopier can copy into an object from a source URL without routing the
// bytes through the caller (server-side copy).
type URLCopier interface {
	CopyFromURL(ctx context.Context, sourceURL, container, key string, progress CopyProgressFunc) error
}

// ContainerManager can enumerate, create and delete containers.
type ContainerManager interface {
	ListContainers(ctx context.Context) ([]ContainerInfo, error)
	CreateContainer(ctx context.Context, name string) error
	DeleteContainer(ctx context.Context, name string) error
}
