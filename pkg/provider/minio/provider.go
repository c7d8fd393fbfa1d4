package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/skybrowse/pkg/provider"
)

var errUnsupportedScheme = errors.New("unsupported scheme")

// api is the subset of *minio.Client used by the provider.
type api interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	RemoveBucket(ctx context.Context, bucketName string) error
}

// Provider implements provider.Provider for MinIO servers.
//
// MinIO offers no copy-from-URL primitive, so the provider does not implement
// provider.URLCopier; copies stream through the caller instead.
type Provider struct {
	client  api
	region  string
	maxKeys int
}

var (
	_ provider.Provider         = (*Provider)(nil)
	_ provider.DelimiterLister  = (*Provider)(nil)
	_ provider.ObjectGetter     = (*Provider)(nil)
	_ provider.ObjectPutter     = (*Provider)(nil)
	_ provider.ObjectDeleter    = (*Provider)(nil)
	_ provider.LinkResolver     = (*Provider)(nil)
	_ provider.ContainerManager = (*Provider)(nil)
)

// New creates a MinIO provider. transport may be nil to use the minio-go default.
func New(cfg Config, transport http.RoundTripper) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	host, secure, _ := cfg.hostAndSecure()

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure:    secure,
		Region:    cfg.Region,
		Transport: transport,
	}
	client, err := minio.New(host, opts)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinio, Err: err}
	}

	maxKeys := cfg.MaxKeys
	if maxKeys == 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{client: client, region: cfg.Region, maxKeys: maxKeys}, nil
}

// List returns a page of objects under the prefix (recursive).
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	page, err := p.listPage(ctx, opts.Container, opts.Prefix, true, opts.ContinuationToken, opts.MaxKeys)
	if err != nil {
		return nil, p.wrapError("List", opts.Container, "", err)
	}
	return &provider.ListResult{
		Objects:           page.objects,
		ContinuationToken: page.next,
		IsTruncated:       page.next != "",
	}, nil
}

// ListWithDelimiter returns direct objects and common prefixes under a prefix.
//
// minio-go only lists with "/" as the delimiter.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if opts.EffectiveDelimiter() != provider.DefaultDelimiter {
		return nil, p.wrapError("ListWithDelimiter", opts.Container, "", provider.ErrUnsupported)
	}
	page, err := p.listPage(ctx, opts.Container, opts.Prefix, false, opts.ContinuationToken, opts.MaxKeys)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Container, "", err)
	}
	return &provider.ListWithDelimiterResult{
		Objects:           page.objects,
		CommonPrefixes:    page.prefixes,
		ContinuationToken: page.next,
		IsTruncated:       page.next != "",
	}, nil
}

type listPage struct {
	objects  []provider.ObjectSummary
	prefixes []string
	next     string
}

// listPage drains the listing channel up to maxKeys entries. The continuation
// token is the last key seen, used as StartAfter on the next call.
func (p *Provider) listPage(ctx context.Context, bucket, prefix string, recursive bool, startAfter string, maxKeys int) (*listPage, error) {
	limit := maxKeys
	if limit <= 0 || limit > p.maxKeys {
		limit = p.maxKeys
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := &listPage{}
	count := 0
	for obj := range p.client.ListObjects(listCtx, bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  recursive,
		StartAfter: startAfter,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if count == limit {
			page.next = lastKey(page)
			break
		}
		count++
		if !recursive && strings.HasSuffix(obj.Key, provider.DefaultDelimiter) && obj.Size == 0 && obj.ETag == "" {
			page.prefixes = append(page.prefixes, obj.Key)
			continue
		}
		page.objects = append(page.objects, summary(obj))
	}
	return page, nil
}

func lastKey(page *listPage) string {
	var last string
	if n := len(page.objects); n > 0 {
		last = page.objects[n-1].Key
	}
	if n := len(page.prefixes); n > 0 && page.prefixes[n-1] > last {
		last = page.prefixes[n-1]
	}
	return last
}

func summary(obj minio.ObjectInfo) provider.ObjectSummary {
	return provider.ObjectSummary{
		Key:          obj.Key,
		Size:         obj.Size,
		ETag:         strings.Trim(obj.ETag, "\""),
		LastModified: obj.LastModified,
		ContentType:  obj.ContentType,
	}
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, container, key string) (*provider.ObjectMeta, error) {
	info, err := p.client.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapError("Head", container, key, err)
	}
	meta := &provider.ObjectMeta{ObjectSummary: summary(info)}
	if len(info.UserMetadata) > 0 {
		meta.Metadata = make(map[string]string, len(info.UserMetadata))
		for k, v := range info.UserMetadata {
			meta.Metadata[k] = v
		}
	}
	return meta, nil
}

// GetObject opens a stream over an object's content.
func (p *Provider) GetObject(ctx context.Context, container, key string) (io.ReadCloser, int64, error) {
	obj, err := p.client.GetObject(ctx, container, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, p.wrapError("GetObject", container, key, err)
	}
	// GetObject is lazy; Stat performs the request and surfaces missing keys.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, p.wrapError("GetObject", container, key, err)
	}
	return obj, info.Size, nil
}

// PutObject uploads an object. contentLength -1 streams with multipart upload.
func (p *Provider) PutObject(ctx context.Context, container, key string, body io.Reader, contentLength int64, contentType string) error {
	_, err := p.client.PutObject(ctx, container, key, body, contentLength, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	return nil
}

// DeleteObject deletes an object.
func (p *Provider) DeleteObject(ctx context.Context, container, key string) error {
	if err := p.client.RemoveObject(ctx, container, key, minio.RemoveObjectOptions{}); err != nil {
		return p.wrapError("DeleteObject", container, key, err)
	}
	return nil
}

// PresignGet returns a presigned GET URL valid for ttl.
func (p *Provider) PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, container, key, ttl, nil)
	if err != nil {
		return "", p.wrapError("PresignGet", container, key, err)
	}
	return u.String(), nil
}

// ListContainers lists the buckets visible to the credentials.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	buckets, err := p.client.ListBuckets(ctx)
	if err != nil {
		return nil, p.wrapError("ListContainers", "", "", err)
	}
	containers := make([]provider.ContainerInfo, 0, len(buckets))
	for _, b := range buckets {
		containers = append(containers, provider.ContainerInfo{Name: b.Name, LastModified: b.CreationDate})
	}
	return containers, nil
}

// CreateContainer creates a bucket in the configured region.
func (p *Provider) CreateContainer(ctx context.Context, name string) error {
	if err := p.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: p.region}); err != nil {
		return p.wrapError("CreateContainer", name, "", err)
	}
	return nil
}

// DeleteContainer deletes an empty bucket.
func (p *Provider) DeleteContainer(ctx context.Context, name string) error {
	if err := p.client.RemoveBucket(ctx, name); err != nil {
		return p.wrapError("DeleteContainer", name, "", err)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts minio-go errors to provider errors with sentinel errors.
func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:        op,
		Provider:  provider.ProviderMinio,
		Container: bucket,
		Key:       key,
		Err:       err,
	}
	if errors.Is(err, provider.ErrUnsupported) {
		return wrapped
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code != "" || resp.StatusCode != 0) {
		switch resp.Code {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrContainerNotFound
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			wrapped.Err = provider.ErrAlreadyExists
		case "AccessDenied":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "SlowDownRead", "SlowDownWrite":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError", "XMinioServerNotInitialized":
			wrapped.Err = provider.ErrProviderUnavailable
		default:
			switch resp.StatusCode {
			case http.StatusNotFound:
				wrapped.Err = provider.ErrNotFound
			case http.StatusForbidden:
				wrapped.Err = provider.ErrAccessDenied
			case http.StatusTooManyRequests:
				wrapped.Err = provider.ErrThrottled
			case http.StatusServiceUnavailable:
				wrapped.Err = provider.ErrProviderUnavailable
			}
		}
		return wrapped
	}

	if provider.IsNetworkFailure(err) {
		wrapped.Err = errors.Join(provider.ErrNetworkUnreachable, err)
	}
	return wrapped
}
