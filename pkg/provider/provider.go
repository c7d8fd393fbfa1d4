// Package provider defines abstractions for object storage accounts.
//
// A provider is bound to a storage account (an S3 endpoint, an Azure storage
// account, a MinIO server, a local directory) rather than a single bucket.
// Every object operation names the container it targets, so one provider can
// back a browsing session that switches between containers.
//
// Authentication uses SDK default credential chains where the SDK offers one.
// Providers should not implement custom auth logic.
package provider

import (
	"context"
	"time"
)

// Provider abstracts flat listing and metadata retrieval.
//
// Implementations should:
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
//   - Wrap failures in *ProviderError carrying one of the sentinel errors
type Provider interface {
	// List returns a page of objects under the given prefix (recursive).
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, container, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Container is the container (bucket) to list. Required.
	Container string

	// Prefix filters results to keys starting with this value.
	// Empty string lists all objects.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of objects returned per page.
	// Zero uses provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	// Objects contains the object summaries for this page.
	Objects []ObjectSummary

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full object key in the container.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time

	// ContentType is the MIME type, when the listing API reports it.
	// S3 listings never do; Azure listings always do.
	ContentType string
}

// ObjectMeta contains full metadata for a single object.
// Returned by Head operations.
type ObjectMeta struct {
	ObjectSummary

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ContainerInfo describes a container (bucket) in the account.
type ContainerInfo struct {
	// Name is the container name. It is also the container's identifier.
	Name string

	// LastModified is when the container was created or last changed.
	LastModified time.Time

	// PublicAccess is the anonymous access level ("", "blob", "container").
	// Only Azure reports it.
	PublicAccess string
}

// ProviderType identifies a storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderAzure represents Azure Blob Storage.
	ProviderAzure ProviderType = "azure"

	// ProviderMinio represents a MinIO server accessed through minio-go.
	ProviderMinio ProviderType = "minio"

	// ProviderFile represents a local directory where each subdirectory is a container.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType maps a configuration string to a ProviderType.
func ParseProviderType(s string) (ProviderType, bool) {
	switch ProviderType(s) {
	case ProviderS3, ProviderAzure, ProviderMinio, ProviderFile:
		return ProviderType(s), true
	}
	return "", false
}
