package listing

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
)

// DirectoryIndex lists the immediate child directories of a prefix.
//
// Listing failures are reported to the configured logger and writer and
// yield an empty result; a failed listing shows as "no data", never as an
// error to the caller.
type DirectoryIndex struct {
	lister
}

// NewDirectoryIndex creates a directory index over p.
func NewDirectoryIndex(p provider.Provider, cfg Config) *DirectoryIndex {
	return &DirectoryIndex{lister: newLister(p, cfg)}
}

// WithLogger sets the logger failures are reported to.
func (d *DirectoryIndex) WithLogger(l *zap.Logger) *DirectoryIndex {
	if l != nil {
		d.logger = l
	}
	return d
}

// WithWriter sets the writer failures are emitted to as error records.
func (d *DirectoryIndex) WithWriter(w output.Writer) *DirectoryIndex {
	d.writer = w
	return d
}

// List returns the distinct immediate child directories of prefix, sorted.
//
// The prefix itself is never part of its own listing, even when the store
// echoes it back as a common prefix.
func (d *DirectoryIndex) List(ctx context.Context, container, prefix string) []Directory {
	seen := make(map[string]struct{})

	var err error
	if dl, ok := d.delimiterLister(); ok {
		err = d.walkDelimited(ctx, dl, container, prefix, func(res *provider.ListWithDelimiterResult) {
			for _, cp := range res.CommonPrefixes {
				if isImmediateChild(prefix, cp) {
					seen[cp] = struct{}{}
				}
			}
		})
	} else {
		err = d.walkFlat(ctx, container, prefix, func(res *provider.ListResult) {
			for _, obj := range res.Objects {
				if child, ok := childOf(prefix, obj.Key); ok {
					seen[child] = struct{}{}
				}
			}
		})
	}
	if err != nil {
		d.report(ctx, "ListDirectories", container, prefix, err)
		return []Directory{}
	}

	dirs := make([]Directory, 0, len(seen))
	for p := range seen {
		dirs = append(dirs, Directory{Container: container, Prefix: p})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Prefix < dirs[j].Prefix })
	return dirs
}

// isImmediateChild reports whether entry is a directory exactly one level
// below prefix. The prefix itself and deeper descendants are not.
func isImmediateChild(prefix, entry string) bool {
	if entry == prefix || !strings.HasPrefix(entry, prefix) {
		return false
	}
	segments := 0
	for _, part := range strings.Split(entry[len(prefix):], provider.DefaultDelimiter) {
		if part != "" {
			segments++
		}
	}
	return segments == 1 && strings.HasSuffix(entry, provider.DefaultDelimiter)
}

// childOf cuts an object key below prefix at its first separator, returning
// the immediate child directory containing it. Objects directly under
// prefix name no directory.
func childOf(prefix, key string) (string, bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	rest := key[len(prefix):]
	i := strings.Index(rest, provider.DefaultDelimiter)
	if i <= 0 {
		return "", false
	}
	return prefix + rest[:i+1], true
}
