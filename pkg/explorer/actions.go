package explorer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// Expand resolves the given objects and directories to the objects a batch
// acts on. Directories expand to every object beneath them. The union is
// deduplicated by key; the first occurrence wins.
func (s *Session) Expand(ctx context.Context, container string, objects, dirs []string) ([]listing.ObjectRecord, error) {
	seen := make(map[string]struct{}, len(objects))
	var out []listing.ObjectRecord
	add := func(r listing.ObjectRecord) {
		if _, dup := seen[r.ID]; dup {
			return
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}

	for _, key := range objects {
		add(listing.ObjectRecord{ID: key, Name: key, Container: container})
	}
	for _, dir := range dirs {
		expanded, err := s.objs.Expand(ctx, container, dir)
		if err != nil {
			return nil, err
		}
		for _, r := range expanded {
			add(r)
		}
	}
	return out, nil
}

func (s *Session) selected(ctx context.Context) (string, []listing.ObjectRecord, error) {
	container, _, err := s.key()
	if err != nil {
		return "", nil, err
	}
	if s.sel.Count().IsZero() {
		return container, nil, nil
	}
	recs, err := s.Expand(ctx, container, s.sel.Objects(), s.sel.Directories())
	return container, recs, err
}

// DeleteSelected deletes every selected object and every object beneath
// every selected directory, including folder markers. An empty selection
// is a no-op and returns a nil result.
func (s *Session) DeleteSelected(ctx context.Context) (*transfer.BatchResult, error) {
	container, recs, err := s.selected(ctx)
	if err != nil || recs == nil {
		return nil, err
	}
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, r.ID)
	}

	s.logger.Info("Deleting selection",
		zap.String("container", container),
		zap.String("selection", s.sel.Summary()),
		zap.Int("objects", len(keys)),
	)
	res := s.xfer.Run(ctx, transfer.DeleteJobs(container, keys))
	s.sel.Clear()
	return res, nil
}

// DownloadSelected downloads the selection below dir, recreating each
// object's key path. Folder markers are skipped. An empty selection is a
// no-op and returns a nil result.
func (s *Session) DownloadSelected(ctx context.Context, dir string) (*transfer.BatchResult, error) {
	container, recs, err := s.selected(ctx)
	if err != nil || recs == nil {
		return nil, err
	}
	jobs := make([]transfer.Job, 0, len(recs))
	for _, r := range recs {
		if r.IsFolderMarker() {
			continue
		}
		job, err := transfer.DownloadJob(container, r.ID, dir, false)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return s.xfer.Run(ctx, jobs), nil
}

// Download downloads one object. With saveAs, target is the exact local
// path; otherwise it is the directory the key path is recreated under.
func (s *Session) Download(ctx context.Context, key, target string, saveAs bool) (*transfer.BatchResult, error) {
	container, _, err := s.key()
	if err != nil {
		return nil, err
	}
	job, err := transfer.DownloadJob(container, key, target, saveAs)
	if err != nil {
		return nil, err
	}
	return s.xfer.Run(ctx, []transfer.Job{job}), nil
}

// Upload uploads the separator-joined local paths under destPrefix. An
// empty destPrefix uploads into the current directory.
func (s *Session) Upload(ctx context.Context, paths, destPrefix string) (*transfer.BatchResult, error) {
	container, prefix, err := s.key()
	if err != nil {
		return nil, err
	}
	if destPrefix == "" {
		destPrefix = prefix
	}
	jobs, err := transfer.UploadJobs(transfer.SplitPaths(paths), container, destPrefix)
	if err != nil {
		return nil, err
	}
	return s.xfer.Run(ctx, jobs), nil
}

// Copy copies key from the active container to targetContainer under the
// same key.
func (s *Session) Copy(ctx context.Context, key, targetContainer string) (*transfer.BatchResult, error) {
	return s.CopyTo(ctx, key, targetContainer, "")
}

// CopyTo copies key into targetContainer under targetPrefix, keeping the
// object's base name. An empty targetPrefix keeps the full key.
func (s *Session) CopyTo(ctx context.Context, key, targetContainer, targetPrefix string) (*transfer.BatchResult, error) {
	container, _, err := s.key()
	if err != nil {
		return nil, err
	}
	job, err := transfer.CopyJob(container, key, targetContainer, targetPrefix)
	if err != nil {
		return nil, err
	}
	return s.xfer.Run(ctx, []transfer.Job{job}), nil
}

// Run executes prepared jobs with the session's orchestrator.
func (s *Session) Run(ctx context.Context, jobs []transfer.Job) *transfer.BatchResult {
	return s.xfer.Run(ctx, jobs)
}

// Link resolves a time-bounded read link for key in the active container.
func (s *Session) Link(ctx context.Context, key string) (*output.LinkRecord, error) {
	container, _, err := s.key()
	if err != nil {
		return nil, err
	}
	resolver, ok := s.store.(provider.LinkResolver)
	if !ok {
		return nil, provider.ErrUnsupported
	}
	ttl := s.cfg.Transfer.LinkTTL
	if ttl <= 0 {
		ttl = transfer.DefaultLinkTTL
	}
	url, err := resolver.PresignGet(ctx, container, key, ttl)
	if err != nil {
		return nil, err
	}
	return &output.LinkRecord{
		Container: container,
		Key:       key,
		URL:       url,
		ExpiresAt: s.now().Add(ttl).UTC().Truncate(time.Second),
	}, nil
}
