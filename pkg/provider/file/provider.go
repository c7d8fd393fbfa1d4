// Package file implements the provider interface over a local directory tree.
//
// Each top-level directory under the base directory is a container. Keys are
// slash-separated paths relative to the container directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/3leaps/skybrowse/pkg/provider"
)

// LinkScheme is the URL scheme of links produced by PresignGet.
const LinkScheme = "file"

const defaultMaxKeys = 1000

// stagingDir holds in-progress uploads, outside every container.
const stagingDir = ".skybrowse-tmp"

var errNotEmpty = errors.New("container is not empty")

// Provider implements provider.Provider for a local directory.
type Provider struct {
	fs  afero.Fs
	now func() time.Time
}

// Ensure Provider implements provider capability interfaces.
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

// Config configures a file provider.
type Config struct {
	// BaseDir is the directory whose subdirectories are containers.
	BaseDir string

	// Fs is the filesystem to use. Nil means the OS filesystem.
	Fs afero.Fs
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

// New creates a file provider rooted at cfg.BaseDir.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.Fs
	if base == nil {
		base = afero.NewOsFs()
	}
	root := filepath.Clean(cfg.BaseDir)
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Err: err}
	}
	return &Provider{fs: afero.NewBasePathFs(base, root), now: time.Now}, nil
}

func (p *Provider) Close() error { return nil }

// List returns a page of objects under the prefix (recursive).
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := p.requireContainer(opts.Container); err != nil {
		return nil, p.wrapError("List", opts.Container, "", err)
	}
	entries, err := p.collect(ctx, opts.Container, opts.Prefix)
	if err != nil {
		return nil, p.wrapError("List", opts.Container, "", err)
	}

	page, next := paginate(entries, opts.ContinuationToken, opts.MaxKeys)
	res := &provider.ListResult{ContinuationToken: next, IsTruncated: next != ""}
	for _, e := range page {
		res.Objects = append(res.Objects, e.summary)
	}
	return res, nil
}

// ListWithDelimiter groups keys under the prefix by the next delimiter.
// Common prefixes come from file keys only; a directory with no file
// beneath it is not reported.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if err := p.requireContainer(opts.Container); err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Container, "", err)
	}
	entries, err := p.collect(ctx, opts.Container, opts.Prefix)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Container, "", err)
	}

	delim := opts.EffectiveDelimiter()
	grouped := make([]entry, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		rest := strings.TrimPrefix(e.key, opts.Prefix)
		if rest == "" {
			continue
		}
		if i := strings.Index(rest, delim); i >= 0 {
			cp := opts.Prefix + rest[:i+len(delim)]
			if !seen[cp] {
				seen[cp] = true
				grouped = append(grouped, entry{key: cp, dir: true})
			}
			continue
		}
		grouped = append(grouped, e)
	}
	sort.Slice(grouped, func(i, j int) bool { return grouped[i].key < grouped[j].key })

	page, next := paginate(grouped, opts.ContinuationToken, opts.MaxKeys)
	res := &provider.ListWithDelimiterResult{ContinuationToken: next, IsTruncated: next != ""}
	for _, e := range page {
		if e.dir {
			res.CommonPrefixes = append(res.CommonPrefixes, e.key)
			continue
		}
		res.Objects = append(res.Objects, e.summary)
	}
	return res, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, container, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.objectPath(container, key)
	if err != nil {
		return nil, p.wrapError("Head", container, key, err)
	}
	st, err := p.fs.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", container, key, p.missing(container, err))
	}
	if st.IsDir() {
		return nil, p.wrapError("Head", container, key, provider.ErrNotFound)
	}
	return &provider.ObjectMeta{ObjectSummary: summaryOf(strings.TrimPrefix(key, "/"), st)}, nil
}

// GetObject opens a file for reading.
func (p *Provider) GetObject(ctx context.Context, container, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := p.objectPath(container, key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", container, key, err)
	}
	f, err := p.fs.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", container, key, p.missing(container, err))
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", container, key, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", container, key, provider.ErrNotFound)
	}
	return f, st.Size(), nil
}

// PutObject writes body to a staging file outside the container and
// renames it into place.
func (p *Provider) PutObject(ctx context.Context, container, key string, body io.Reader, contentLength int64, contentType string) error {
	_ = ctx
	_ = contentLength
	_ = contentType
	if err := p.requireContainer(container); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	full, err := p.objectPath(container, key)
	if err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	if err := p.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}

	staging := string(filepath.Separator) + stagingDir
	if err := p.fs.MkdirAll(staging, 0o755); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	tmp, err := afero.TempFile(p.fs, staging, "put-*")
	if err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = p.fs.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	if err := p.fs.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", container, key, err)
	}
	return nil
}

// DeleteObject removes a file.
func (p *Provider) DeleteObject(ctx context.Context, container, key string) error {
	_ = ctx
	full, err := p.objectPath(container, key)
	if err != nil {
		return p.wrapError("DeleteObject", container, key, err)
	}
	st, err := p.fs.Stat(full)
	if err != nil {
		return p.wrapError("DeleteObject", container, key, p.missing(container, err))
	}
	if st.IsDir() {
		return p.wrapError("DeleteObject", container, key, provider.ErrNotFound)
	}
	if err := p.fs.Remove(full); err != nil {
		return p.wrapError("DeleteObject", container, key, err)
	}
	p.pruneEmptyParents(container, full)
	return nil
}

// pruneEmptyParents removes the directories above full that no longer
// hold anything, stopping at the container root.
func (p *Provider) pruneEmptyParents(container, full string) {
	root, _ := containerPath(container)
	for dir := filepath.Dir(full); dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)); dir = filepath.Dir(dir) {
		if empty, err := afero.IsEmpty(p.fs, dir); err != nil || !empty {
			return
		}
		if err := p.fs.Remove(dir); err != nil {
			return
		}
	}
}

// PresignGet returns a file:// link naming the container and key, valid for ttl.
// Links are only meaningful to a file provider over the same directory.
func (p *Provider) PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error) {
	if _, err := p.Head(ctx, container, key); err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   LinkScheme,
		Host:     container,
		Path:     "/" + strings.TrimPrefix(key, "/"),
		RawQuery: url.Values{"expires": {strconv.FormatInt(p.now().Add(ttl).Unix(), 10)}}.Encode(),
	}
	return u.String(), nil
}

// CopyFromURL copies from a link produced by PresignGet. Other URL schemes
// return provider.ErrUnsupported so callers can stream the copy instead.
func (p *Provider) CopyFromURL(ctx context.Context, sourceURL, container, key string, progress provider.CopyProgressFunc) error {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme != LinkScheme {
		return p.wrapError("CopyFromURL", container, key, provider.ErrUnsupported)
	}
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil || p.now().Unix() > expires {
		return p.wrapError("CopyFromURL", u.Host, strings.TrimPrefix(u.Path, "/"), provider.ErrAccessDenied)
	}

	body, size, err := p.GetObject(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	var r io.Reader = body
	if progress != nil {
		r = &progressReader{r: body, total: size, fn: progress}
	}
	return p.PutObject(ctx, container, key, r, size, "")
}

type progressReader struct {
	r      io.Reader
	copied int64
	total  int64
	fn     provider.CopyProgressFunc
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.copied += int64(n)
		pr.fn(pr.copied, pr.total)
	}
	return n, err
}

// ListContainers lists the top-level directories.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.ContainerInfo, error) {
	_ = ctx
	infos, err := afero.ReadDir(p.fs, string(filepath.Separator))
	if err != nil {
		return nil, p.wrapError("ListContainers", "", "", err)
	}
	var containers []provider.ContainerInfo
	for _, fi := range infos {
		if fi.IsDir() && fi.Name() != stagingDir {
			containers = append(containers, provider.ContainerInfo{Name: fi.Name(), LastModified: fi.ModTime()})
		}
	}
	return containers, nil
}

// CreateContainer creates a top-level directory.
func (p *Provider) CreateContainer(ctx context.Context, name string) error {
	_ = ctx
	dir, err := containerPath(name)
	if err != nil {
		return p.wrapError("CreateContainer", name, "", err)
	}
	if ok, _ := afero.DirExists(p.fs, dir); ok {
		return p.wrapError("CreateContainer", name, "", provider.ErrAlreadyExists)
	}
	if err := p.fs.Mkdir(dir, 0o755); err != nil {
		return p.wrapError("CreateContainer", name, "", err)
	}
	return nil
}

// DeleteContainer removes an empty top-level directory.
func (p *Provider) DeleteContainer(ctx context.Context, name string) error {
	_ = ctx
	if err := p.requireContainer(name); err != nil {
		return p.wrapError("DeleteContainer", name, "", err)
	}
	dir, _ := containerPath(name)
	empty, err := afero.IsEmpty(p.fs, dir)
	if err != nil {
		return p.wrapError("DeleteContainer", name, "", err)
	}
	if !empty {
		return p.wrapError("DeleteContainer", name, "", errNotEmpty)
	}
	if err := p.fs.Remove(dir); err != nil {
		return p.wrapError("DeleteContainer", name, "", err)
	}
	return nil
}

type entry struct {
	key     string
	dir     bool
	summary provider.ObjectSummary
}

// collect walks the container and returns the sorted file entries whose
// key starts with prefix.
func (p *Provider) collect(ctx context.Context, container, prefix string) ([]entry, error) {
	root, _ := containerPath(container)

	// Walk only the deepest directory the prefix fully names.
	start := root
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		start = filepath.Join(root, filepath.FromSlash(path.Clean("/"+prefix[:i])))
	}
	if ok, _ := afero.DirExists(p.fs, start); !ok {
		return nil, nil
	}

	var entries []entry
	err := afero.Walk(p.fs, start, func(full string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if full == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, full)
		if relErr != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			entries = append(entries, entry{key: key, summary: summaryOf(key, info)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries, nil
}

// paginate returns the page of entries after token and the next token.
func paginate(entries []entry, token string, maxKeys int) ([]entry, string) {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	start := 0
	if token != "" {
		// Start strictly after the last returned key.
		start = sort.Search(len(entries), func(i int) bool { return entries[i].key > token })
	}
	end := start + maxKeys
	if end >= len(entries) {
		return entries[start:], ""
	}
	return entries[start:end], entries[end-1].key
}

func summaryOf(key string, info fs.FileInfo) provider.ObjectSummary {
	return provider.ObjectSummary{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		ContentType:  mime.TypeByExtension(path.Ext(key)),
	}
}

func (p *Provider) requireContainer(container string) error {
	dir, err := containerPath(container)
	if err != nil {
		return err
	}
	if ok, _ := afero.DirExists(p.fs, dir); !ok {
		return provider.ErrContainerNotFound
	}
	return nil
}

// missing maps a not-exist error to ErrContainerNotFound or ErrNotFound.
func (p *Provider) missing(container string, err error) error {
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if p.requireContainer(container) != nil {
		return provider.ErrContainerNotFound
	}
	return provider.ErrNotFound
}

func containerPath(container string) (string, error) {
	if container == "" || container == "." || container == ".." || container == stagingDir || strings.ContainsAny(container, `/\`) {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	return string(filepath.Separator) + container, nil
}

func (p *Provider) objectPath(container, key string) (string, error) {
	root, err := containerPath(container)
	if err != nil {
		return "", err
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	// Prevent path traversal.
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(op, container, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Container: container, Key: key, Err: err}
	// Normalize common filesystem errors to provider sentinels.
	switch {
	case errors.Is(err, fs.ErrNotExist):
		wrapped.Err = provider.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		wrapped.Err = provider.ErrAccessDenied
	case errors.Is(err, fs.ErrExist):
		wrapped.Err = provider.ErrAlreadyExists
	}
	return wrapped
}
