// Package listing projects a flat object namespace into virtual directories
// and object records.
//
// DirectoryIndex answers "which directories live directly under this prefix";
// ObjectIndex answers "which objects live directly under this prefix" and
// expands directories into every object beneath them. View combines both for
// a single (container, prefix) key with last-request-wins semantics.
package listing

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
)

// Config configures listing behavior.
type Config struct {
	// PageSize is the number of keys requested per listing page.
	// Zero uses the provider default.
	PageSize int

	// MaxPages bounds the number of pages fetched for one listing.
	// Zero means unlimited.
	MaxPages int

	// RateLimit is the maximum listing requests per second to the provider.
	// Zero means unlimited.
	RateLimit float64
}

// DefaultConfig returns the default listing configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:  0,
		MaxPages:  0,
		RateLimit: 0,
	}
}

// lister holds what both indexes share: the provider, pacing, and the
// side channels errors are reported to.
type lister struct {
	provider provider.Provider
	config   Config
	limiter  *rate.Limiter
	writer   output.Writer
	logger   *zap.Logger
}

func newLister(p provider.Provider, cfg Config) lister {
	l := lister{provider: p, config: cfg, logger: zap.NewNop()}
	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return l
}

// waitForRateLimit blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (l *lister) waitForRateLimit(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

func (l *lister) pageLimitReached(pages int) bool {
	return l.config.MaxPages > 0 && pages >= l.config.MaxPages
}

// report logs a listing failure and emits an error record when a writer is set.
func (l *lister) report(ctx context.Context, op, container, prefix string, err error) {
	l.logger.Warn("Listing failed",
		zap.String("op", op),
		zap.String("container", container),
		zap.String("prefix", prefix),
		zap.Error(err),
	)
	if l.writer == nil {
		return
	}
	rec := &output.ErrorRecord{
		Code:      output.CodeFor(err),
		Message:   err.Error(),
		Container: container,
		Prefix:    prefix,
	}
	if hint := provider.Guidance(err); hint != "" {
		rec.Details = map[string]any{"guidance": hint}
	}
	// Best effort: a failed error record must not mask the listing failure.
	if werr := l.writer.WriteError(ctx, rec); werr != nil {
		l.logger.Debug("Failed to write error record", zap.Error(werr))
	}
}

// delimiterLister returns the provider's delimiter listing capability, if any.
func (l *lister) delimiterLister() (provider.DelimiterLister, bool) {
	dl, ok := l.provider.(provider.DelimiterLister)
	return dl, ok
}

// walkDelimited pages through a delimiter listing at prefix.
func (l *lister) walkDelimited(ctx context.Context, dl provider.DelimiterLister, container, prefix string, fn func(*provider.ListWithDelimiterResult)) error {
	var token string
	for pages := 0; ; pages++ {
		if l.pageLimitReached(pages) {
			return nil
		}
		if err := l.waitForRateLimit(ctx); err != nil {
			return err
		}
		res, err := dl.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
			Container:         container,
			Prefix:            prefix,
			Delimiter:         provider.DefaultDelimiter,
			ContinuationToken: token,
			MaxKeys:           l.config.PageSize,
		})
		if err != nil {
			return err
		}
		fn(res)
		if !res.IsTruncated || res.ContinuationToken == "" {
			return nil
		}
		token = res.ContinuationToken
	}
}

// walkFlat pages through a recursive listing at prefix.
func (l *lister) walkFlat(ctx context.Context, container, prefix string, fn func(*provider.ListResult)) error {
	var token string
	for pages := 0; ; pages++ {
		if l.pageLimitReached(pages) {
			return nil
		}
		if err := l.waitForRateLimit(ctx); err != nil {
			return err
		}
		res, err := l.provider.List(ctx, provider.ListOptions{
			Container:         container,
			Prefix:            prefix,
			ContinuationToken: token,
			MaxKeys:           l.config.PageSize,
		})
		if err != nil {
			return err
		}
		fn(res)
		if !res.IsTruncated || res.ContinuationToken == "" {
			return nil
		}
		token = res.ContinuationToken
	}
}
