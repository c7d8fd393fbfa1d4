package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/provider"
)

const (
	// DefaultPollInterval is how often in-flight jobs report progress.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultLinkTTL bounds the lifetime of the source link used by copies.
	DefaultLinkTTL = 15 * time.Minute
)

// Config configures an Orchestrator.
type Config struct {
	// PollInterval is the progress sampling period for in-flight jobs.
	PollInterval time.Duration

	// LinkTTL is the validity of the source link resolved for a copy.
	LinkTTL time.Duration

	// RetryBufferMaxMemoryBytes bounds in-memory buffering of streamed
	// copy bodies. Larger bodies are spooled to a temp file.
	RetryBufferMaxMemoryBytes int64
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:              DefaultPollInterval,
		LinkTTL:                   DefaultLinkTTL,
		RetryBufferMaxMemoryBytes: DefaultRetryBufferMaxMemoryBytes,
	}
}

// Orchestrator runs batches of jobs against one storage account.
//
// Every job of a batch runs concurrently. A failing job never stops its
// siblings, and Run always returns a result for every job.
type Orchestrator struct {
	store  provider.Provider
	cfg    Config
	fs     afero.Fs
	sink   Sink
	client *retryablehttp.Client
	logger *zap.Logger
}

// New creates an orchestrator over store.
func New(store provider.Provider, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = def.LinkTTL
	}
	if cfg.RetryBufferMaxMemoryBytes <= 0 {
		cfg.RetryBufferMaxMemoryBytes = def.RetryBufferMaxMemoryBytes
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = retryLogger{zap.NewNop().Sugar()}

	return &Orchestrator{
		store:  store,
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		sink:   nopSink{},
		client: client,
		logger: zap.NewNop(),
	}
}

// WithFs sets the local filesystem used by uploads and downloads.
func (o *Orchestrator) WithFs(fs afero.Fs) *Orchestrator {
	if fs != nil {
		o.fs = fs
	}
	return o
}

// WithSink sets the progress sink.
func (o *Orchestrator) WithSink(s Sink) *Orchestrator {
	if s != nil {
		o.sink = s
	}
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(l *zap.Logger) *Orchestrator {
	if l != nil {
		o.logger = l
		o.client.Logger = retryLogger{l.Sugar()}
	}
	return o
}

// WithHTTPClient sets the client used to fetch copy source links.
func (o *Orchestrator) WithHTTPClient(c *http.Client) *Orchestrator {
	if c != nil {
		o.client.HTTPClient = c
	}
	return o
}

// Run executes every job concurrently and returns once all have settled.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()
	res := &BatchResult{Results: make([]Result, len(jobs))}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			res.Results[i] = o.runJob(ctx, job)
		}(i, job)
	}
	wg.Wait()

	res.Duration = time.Since(start)
	o.logger.Info("Batch settled",
		zap.Int("jobs", len(jobs)),
		zap.Int("succeeded", res.Succeeded()),
		zap.Int("failed", res.Failed()),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// runJob drives one job from InFlight to a terminal state. The progress
// poller is stopped, and has exited, before the sink sees Done.
func (o *Orchestrator) runJob(ctx context.Context, job Job) Result {
	id := uuid.NewString()
	handle := o.sink.Begin(id, job)
	tracker := NewTracker(-1)
	start := time.Now()

	bytes, err := func() (int64, error) {
		if job.Kind() != KindDelete {
			stop := o.startPoll(handle, id, job, tracker)
			defer stop()
		}
		return o.execute(ctx, job, tracker)
	}()

	result := Result{
		TransferID: id,
		Job:        job,
		State:      StateSucceeded,
		Bytes:      bytes,
		Duration:   time.Since(start),
	}
	if err != nil {
		result.State = StateFailed
		result.Err = jobError(job, phaseOf(err), err)
		o.logger.Warn("Job failed",
			zap.String("transfer_id", id),
			zap.String("kind", string(job.Kind())),
			zap.String("source", job.Source()),
			zap.Error(err),
		)
	}
	result.Message = CompletionMessage(job, result.Err)
	handle.Done(result)
	return result
}

// startPoll samples tracker every poll interval until the returned stop
// function is called. stop blocks until the poller has exited.
func (o *Orchestrator) startPoll(handle Handle, id string, job Job, tracker *Tracker) func() {
	ticker := time.NewTicker(o.cfg.PollInterval)
	quit := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				p := tracker.Sample()
				handle.Progress(Update{TransferID: id, Job: job, Progress: p, Message: ProgressMessage(job, p)})
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(quit)
		<-exited
	}
}

func (o *Orchestrator) execute(ctx context.Context, job Job, tracker *Tracker) (int64, error) {
	switch j := job.(type) {
	case Upload:
		return o.upload(ctx, j, tracker)
	case Download:
		return o.download(ctx, j, tracker)
	case Copy:
		return o.copy(ctx, j, tracker)
	case Delete:
		return 0, o.delete(ctx, j)
	}
	return 0, fmt.Errorf("unknown job kind %q", job.Kind())
}

func (o *Orchestrator) upload(ctx context.Context, j Upload, tracker *Tracker) (int64, error) {
	if err := ValidateKey(j.Key); err != nil {
		return 0, err
	}
	putter, ok := o.store.(provider.ObjectPutter)
	if !ok {
		return 0, provider.ErrUnsupported
	}

	f, err := o.fs.Open(j.LocalPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, &ValidationError{Field: "path", Value: j.LocalPath, Reason: "is a directory"}
	}
	tracker.SetTotal(info.Size())

	contentType := mime.TypeByExtension(filepath.Ext(j.LocalPath))
	if err := putter.PutObject(ctx, j.Container, j.Key, tracker.Reader(f), info.Size(), contentType); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (o *Orchestrator) download(ctx context.Context, j Download, tracker *Tracker) (int64, error) {
	getter, ok := o.store.(provider.ObjectGetter)
	if !ok {
		return 0, provider.ErrUnsupported
	}

	body, size, err := getter.GetObject(ctx, j.Container, j.Key)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()
	tracker.SetTotal(size)

	dir := filepath.Dir(j.LocalPath)
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := afero.TempFile(o.fs, dir, ".skybrowse-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, tracker.Reader(body))
	closeErr := tmp.Close()
	if err == nil && size >= 0 && n != size {
		err = &SizeMismatchError{Key: j.Key, Expected: size, Got: n}
	}
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = o.fs.Rename(tmp.Name(), j.LocalPath)
	}
	if err != nil {
		_ = o.fs.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

const (
	phaseLink = "resolve link"
	phaseCopy = "copy"
)

type phaseError struct {
	phase string
	err   error
}

func (e *phaseError) Error() string { return e.err.Error() }
func (e *phaseError) Unwrap() error { return e.err }

func phaseOf(err error) string {
	var pe *phaseError
	if errors.As(err, &pe) {
		return pe.phase
	}
	return ""
}

// copy resolves a time-bounded link on the source, then has the target
// pull from it. A target without server-side copy gets the link body
// streamed into PutObject instead.
func (o *Orchestrator) copy(ctx context.Context, j Copy, tracker *Tracker) (int64, error) {
	resolver, ok := o.store.(provider.LinkResolver)
	if !ok {
		return 0, &phaseError{phase: phaseLink, err: provider.ErrUnsupported}
	}
	link, err := resolver.PresignGet(ctx, j.SourceContainer, j.SourceKey, o.cfg.LinkTTL)
	if err != nil {
		return 0, &phaseError{phase: phaseLink, err: err}
	}

	if copier, ok := o.store.(provider.URLCopier); ok {
		err := copier.CopyFromURL(ctx, link, j.TargetContainer, j.TargetKey, tracker.Set)
		switch {
		case err == nil:
			return tracker.Done(), nil
		case !errors.Is(err, provider.ErrUnsupported):
			return 0, &phaseError{phase: phaseCopy, err: err}
		}
		o.logger.Debug("Server-side copy unsupported for link, streaming",
			zap.String("source", j.Source()),
			zap.String("target", j.Target()),
		)
	}

	n, err := o.streamCopy(ctx, link, j, tracker)
	if err != nil {
		return 0, &phaseError{phase: phaseCopy, err: err}
	}
	return n, nil
}

func (o *Orchestrator) streamCopy(ctx context.Context, link string, j Copy, tracker *Tracker) (int64, error) {
	putter, ok := o.store.(provider.ObjectPutter)
	if !ok {
		return 0, provider.ErrUnsupported
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return 0, linkStatusError(resp.StatusCode)
	}
	tracker.SetTotal(resp.ContentLength)

	body, err := newRetryableBody(o.fs, io.NopCloser(tracker.Reader(resp.Body)), resp.ContentLength, o.cfg.RetryBufferMaxMemoryBytes)
	_ = resp.Body.Close()
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	if err := putter.PutObject(ctx, j.TargetContainer, j.TargetKey, body.Reader(), body.Size(), resp.Header.Get("Content-Type")); err != nil {
		return 0, err
	}
	return body.Size(), nil
}

func linkStatusError(status int) error {
	err := fmt.Errorf("source link returned HTTP %d", status)
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", provider.ErrNotFound, err)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", provider.ErrAccessDenied, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", provider.ErrThrottled, err)
	case status >= 500:
		return fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}
	return err
}

func (o *Orchestrator) delete(ctx context.Context, j Delete) error {
	deleter, ok := o.store.(provider.ObjectDeleter)
	if !ok {
		return provider.ErrUnsupported
	}
	err := deleter.DeleteObject(ctx, j.Container, j.Key)
	if provider.IsNotFound(err) {
		return nil
	}
	return err
}

// retryLogger adapts zap to retryablehttp.LeveledLogger. Request errors
// are only warnings since the job reports the final failure.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (r retryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.s.Warnw(msg, keysAndValues...)
}
func (r retryLogger) Warn(msg string, keysAndValues ...interface{}) { r.s.Warnw(msg, keysAndValues...) }
func (r retryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.s.Debugw(msg, keysAndValues...)
}
func (r retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.s.Debugw(msg, keysAndValues...)
}
