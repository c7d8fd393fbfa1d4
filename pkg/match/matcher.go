package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"

	"github.com/3leaps/skybrowse/pkg/listing"
)

// Errors returned by New.
var (
	ErrInvalidPattern = errors.New("invalid glob pattern")
	ErrInvalidSize    = errors.New("invalid size value")
	ErrInvalidDate    = errors.New("invalid date value")
)

// Config configures a Matcher. Zero fields impose no constraint.
type Config struct {
	// Includes are doublestar patterns matched against the full key. A key
	// must match at least one. Empty matches every key.
	Includes []string

	// Excludes are doublestar patterns; a key matching any is rejected.
	Excludes []string

	// IncludeHidden keeps keys with a path segment starting with '.'.
	IncludeHidden bool

	// MinSize and MaxSize bound the object size, inclusive. Human-readable
	// values are accepted: "10KB", "1.5MiB".
	MinSize string
	MaxSize string

	// After keeps objects modified at or after this time; Before keeps
	// objects modified strictly before it. "2024-01-15" or RFC 3339.
	After  string
	Before string
}

// Matcher evaluates object records against a Config. It is safe for
// concurrent use.
type Matcher struct {
	includes      []string
	excludes      []string
	includeHidden bool
	minSize       int64
	maxSize       int64
	after         time.Time
	before        time.Time
}

// New validates cfg and builds a Matcher.
func New(cfg Config) (*Matcher, error) {
	m := &Matcher{includeHidden: cfg.IncludeHidden, minSize: -1, maxSize: -1}

	for _, p := range cfg.Includes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
		m.includes = append(m.includes, p)
	}
	for _, p := range cfg.Excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
		m.excludes = append(m.excludes, p)
	}

	var err error
	if m.minSize, err = parseSize(cfg.MinSize); err != nil {
		return nil, fmt.Errorf("min size: %w", err)
	}
	if m.maxSize, err = parseSize(cfg.MaxSize); err != nil {
		return nil, fmt.Errorf("max size: %w", err)
	}
	if m.minSize >= 0 && m.maxSize >= 0 && m.minSize > m.maxSize {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, m.minSize, m.maxSize)
	}

	if cfg.After != "" {
		if m.after, err = ParseDate(cfg.After); err != nil {
			return nil, fmt.Errorf("after: %w", err)
		}
	}
	if cfg.Before != "" {
		if m.before, err = ParseDate(cfg.Before); err != nil {
			return nil, fmt.Errorf("before: %w", err)
		}
	}
	if !m.after.IsZero() && !m.before.IsZero() && !m.after.Before(m.before) {
		return nil, fmt.Errorf("%w: after (%s) is not before before (%s)", ErrInvalidDate,
			m.after.Format(time.RFC3339), m.before.Format(time.RFC3339))
	}
	return m, nil
}

// Match reports whether r passes every constraint.
func (m *Matcher) Match(r listing.ObjectRecord) bool {
	if !m.includeHidden && IsHidden(r.ID) {
		return false
	}
	if len(m.includes) > 0 && !anyMatch(m.includes, r.ID) {
		return false
	}
	if anyMatch(m.excludes, r.ID) {
		return false
	}
	if m.minSize >= 0 && r.Size < m.minSize {
		return false
	}
	if m.maxSize >= 0 && r.Size > m.maxSize {
		return false
	}
	if !m.after.IsZero() && r.LastModified.Before(m.after) {
		return false
	}
	if !m.before.IsZero() && !r.LastModified.Before(m.before) {
		return false
	}
	return true
}

// Filter returns the records that match, in input order. Folder markers
// are dropped.
func (m *Matcher) Filter(records []listing.ObjectRecord) []listing.ObjectRecord {
	var out []listing.ObjectRecord
	for _, r := range records {
		if !r.IsFolderMarker() && m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// IsHidden reports whether any segment of key starts with '.'.
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

func anyMatch(patterns []string, key string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

// parseSize returns -1 for an empty value.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil || n > 1<<62 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return int64(n), nil
}

// ParseDate parses "2006-01-02" (start of day UTC) or an RFC 3339 time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
