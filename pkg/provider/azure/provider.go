package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/3leaps/skybrowse/pkg/provider"
)

// Provider implements provider.Provider for Azure Blob Storage.
type Provider struct {
	client       *azblob.Client
	maxResults   int32
	pollInterval time.Duration
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider         = (*Provider)(nil)
	_ provider.DelimiterLister  = (*Provider)(nil)
	_ provider.ObjectGetter     = (*Provider)(nil)
	_ provider.ObjectPutter     = (*Provider)(nil)
	_ provider.ObjectDeleter    = (*Provider)(nil)
	_ provider.LinkResolver     = (*Provider)(nil)
	_ provider.URLCopier        = (*Provider)(nil)
	_ provider.ContainerManager = (*Provider)(nil)
)

// New creates an Azure provider. transport may be nil to use the SDK default.
func New(cfg Config, transport *http.Client) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &azblob.ClientOptions{}
	if transport != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: transport}
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	case cfg.AccountName != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			// The SDK rejects keys that are not valid base64 before any request.
			return nil, &provider.ProviderError{
				Op:       "New",
				Provider: provider.ProviderAzure,
				Err:      fmt.Errorf("%w: the account key is not a valid base64 string", provider.ErrInvalidCredentials),
			}
		}
		client, err = azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL(), cred, opts)
	default:
		client, err = azblob.NewClientWithNoCredential(cfg.SASURL, opts)
	}
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderAzure, Err: err}
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	poll := cfg.CopyPollInterval
	if poll <= 0 {
		poll = DefaultCopyPollInterval
	}

	return &Provider{
		client:       client,
		maxResults:   int32(maxResults),
		pollInterval: poll,
	}, nil
}

func (p *Provider) containerClient(name string) *container.Client {
	return p.client.ServiceClient().NewContainerClient(name)
}

// List returns a page of blobs under the given prefix (flat).
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	pager := p.containerClient(opts.Container).NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     rootPrefix(opts.Prefix),
		Marker:     optionalString(opts.ContinuationToken),
		MaxResults: p.pageSize(opts.MaxKeys),
	})

	if !pager.More() {
		return &provider.ListResult{}, nil
	}
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, p.wrapError("List", opts.Container, "", err)
	}

	result := &provider.ListResult{}
	if resp.Segment != nil {
		result.Objects = summaries(resp.Segment.BlobItems)
	}
	if next := derefString(resp.NextMarker); next != "" {
		result.ContinuationToken = next
		result.IsTruncated = true
	}
	return result, nil
}

// ListWithDelimiter lists one hierarchy level: blobs directly under the
// prefix plus the virtual directories below it.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	pager := p.containerClient(opts.Container).NewListBlobsHierarchyPager(opts.EffectiveDelimiter(), &container.ListBlobsHierarchyOptions{
		Prefix:     rootPrefix(opts.Prefix),
		Marker:     optionalString(opts.ContinuationToken),
		MaxResults: p.pageSize(opts.MaxKeys),
	})

	if !pager.More() {
		return &provider.ListWithDelimiterResult{}, nil
	}
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Container, "", err)
	}

	result := &provider.ListWithDelimiterResult{}
	if resp.Segment != nil {
		result.Objects = summaries(resp.Segment.BlobItems)
		for _, bp := range resp.Segment.BlobPrefixes {
			if name := derefString(bp.Name); name != "" {
				result.CommonPrefixes = append(result.CommonPrefixes, name)
			}
		}
	}
	if next := derefString(resp.NextMarker); next != "" {
		result.ContinuationToken = next
		result.IsTruncated = true
	}
	return result, nil
}

func summaries(items []*container.BlobItem) []provider.ObjectSummary {
	objects := make([]provider.ObjectSummary, 0, len(items))
	for _, item := range items {
		if item == nil || item.Name == nil {
			continue
		}
		summary := provider.ObjectSummary{Key: *item.Name}
		if props := item.Properties; props != nil {
			summary.Size = derefInt64(props.ContentLength)
			summary.ContentType = derefString(props.ContentType)
			if props.LastModified != nil {
				summary.LastModified = *props.LastModified
			}
			if props.ETag != nil {
				summary.ETag = strings.Trim(string(*props.ETag), "\"")
			}
		}
		objects = append(objects, summary)
	}
	return objects
}

// Head returns blob properties.
func (p *Provider) Head(ctx context.Context, containerName, key string) (*provider.ObjectMeta, error) {
	props, err := p.containerClient(containerName).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		return nil, p.wrapError("Head", containerName, key, err)
	}

	meta := &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:         key,
			Size:        derefInt64(props.ContentLength),
			ContentType: derefString(props.ContentType),
		},
		Metadata: make(map[string]string, len(props.Metadata)),
	}
	if props.LastModified != nil {
		meta.LastModified = *props.LastModified
	}
	if props.ETag != nil {
		meta.ETag = strings.Trim(string(*props.ETag), "\"")
	}
	for k, v := range props.Metadata {
		meta.Metadata[k] = derefString(v)
	}
	return meta, nil
}

// GetObject opens a download stream for a blob.
func (p *Provider) GetObject(ctx context.Context, containerName, key string) (io.ReadCloser, int64, error) {
	resp, err := p.client.DownloadStream(ctx, containerName, key, nil)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", containerName, key, err)
	}
	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}

// PutObject uploads a block blob from body.
func (p *Provider) PutObject(ctx context.Context, containerName, key string, body io.Reader, contentLength int64, contentType string) error {
	_ = contentLength
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := p.client.UploadStream(ctx, containerName, key, body, opts); err != nil {
		return p.wrapError("PutObject", containerName, key, err)
	}
	return nil
}

// DeleteObject deletes a blob.
func (p *Provider) DeleteObject(ctx context.Context, containerName, key string) error {
	if _, err := p.client.DeleteBlob(ctx, containerName, key, nil); err != nil {
		return p.wrapError("DeleteObject", containerName, key, err)
	}
	return nil
}

// PresignGet returns a read-only SAS URL for one blob.
func (p *Provider) PresignGet(ctx context.Context, containerName, key string, ttl time.Duration) (string, error) {
	_ = ctx
	link, err := p.containerClient(containerName).NewBlobClient(key).GetSASURL(
		sas.BlobPermissions{Read: true},
		time.Now().UTC().Add(ttl),
		nil,
	)
	if err != nil {
		return "", p.wrapError("PresignGet", containerName, key, err)
	}
	return link, nil
}

// CopyFromURL starts a server-side copy into containerName/key and polls
// until the copy leaves the pending state.
func (p *Provider) CopyFromURL(ctx context.Context, sourceURL, containerName, key string, progress provider.CopyProgressFunc) error {
	bc := p.containerClient(containerName).NewBlobClient(key)

	resp, err := bc.StartCopyFromURL(ctx, sourceURL, nil)
	if err != nil {
		return p.wrapError("CopyFromURL", containerName, key, err)
	}

	status := blob.CopyStatusTypePending
	if resp.CopyStatus != nil {
		status = *resp.CopyStatus
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for status == blob.CopyStatusTypePending {
		select {
		case <-ctx.Done():
			return p.wrapError("CopyFromURL", containerName, key, ctx.Err())
		case <-ticker.C:
		}

		props, err := bc.GetProperties(ctx, nil)
		if err != nil {
			return p.wrapError("CopyFromURL", containerName, key, err)
		}
		if props.CopyStatus != nil {
			status = *props.CopyStatus
		}
		if progress != nil {
			if copied, total, ok := parseCopyProgress(derefString(props.CopyProgress)); ok {
				progress(copied, total)
			}
		}
	}

	if status != blob.CopyStatusTypeSuccess {
		return p.wrapError("CopyFromURL", containerName, key, fmt.Errorf("copy %s", strings.ToLower(string(status))))
	}
	return nil
}

// ListContainers lists every container in the account.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	var containers []provider.ContainerInfo

	pager := p.client.NewListContainersPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, p.wrapError("ListContainers", "", "", err)
		}
		for _, item := range resp.ContainerItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := provider.ContainerInfo{Name: *item.Name}
			if props := item.Properties; props != nil {
				if props.LastModified != nil {
					info.LastModified = *props.LastModified
				}
				if props.PublicAccess != nil {
					info.PublicAccess = string(*props.PublicAccess)
				}
			}
			containers = append(containers, info)
		}
	}
	return containers, nil
}

// CreateContainer creates a private container.
func (p *Provider) CreateContainer(ctx context.Context, name string) error {
	if _, err := p.client.CreateContainer(ctx, name, nil); err != nil {
		return p.wrapError("CreateContainer", name, "", err)
	}
	return nil
}

// DeleteContainer deletes a container and every blob in it.
func (p *Provider) DeleteContainer(ctx context.Context, name string) error {
	if _, err := p.client.DeleteContainer(ctx, name, nil); err != nil {
		return p.wrapError("DeleteContainer", name, "", err)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) pageSize(requested int) *int32 {
	n := p.maxResults
	if requested > 0 && int32(requested) < n {
		n = int32(requested)
	}
	return &n
}

// wrapError converts Azure errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, containerName, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:        op,
		Provider:  provider.ProviderAzure,
		Container: containerName,
		Key:       key,
		Err:       err,
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.CannotVerifyCopySource):
		wrapped.Err = provider.ErrNotFound
	case bloberror.HasCode(err, bloberror.ContainerNotFound, bloberror.ContainerBeingDeleted):
		wrapped.Err = provider.ErrContainerNotFound
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
		wrapped.Err = provider.ErrAlreadyExists
	case bloberror.HasCode(err, bloberror.AuthenticationFailed):
		wrapped.Err = provider.ErrInvalidCredentials
	case bloberror.HasCode(err, bloberror.AuthorizationFailure, bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		wrapped.Err = provider.ErrAccessDenied
	case bloberror.HasCode(err, bloberror.ServerBusy):
		wrapped.Err = provider.ErrThrottled
	case bloberror.HasCode(err, bloberror.InternalError, bloberror.OperationTimedOut):
		wrapped.Err = provider.ErrProviderUnavailable
	case provider.IsNetworkFailure(err):
		wrapped.Err = errors.Join(provider.ErrNetworkUnreachable, err)
	default:
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			switch respErr.StatusCode {
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
	}
	return wrapped
}

// rootPrefix maps the root view ("" or "/") to no prefix at all.
func rootPrefix(prefix string) *string {
	if prefix == "" || prefix == "/" {
		return nil
	}
	return &prefix
}

// parseCopyProgress parses the "copied/total" header value.
func parseCopyProgress(s string) (copied, total int64, ok bool) {
	left, right, found := strings.Cut(s, "/")
	if !found {
		return 0, 0, false
	}
	copied, err := strconv.ParseInt(strings.TrimSpace(left), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.ParseInt(strings.TrimSpace(right), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return copied, total, true
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
