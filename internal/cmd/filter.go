package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/match"
)

// Object filter flags shared by ls, get, rm and cp.
var (
	filterExcludes   []string
	filterMinSize    string
	filterMaxSize    string
	filterAfter      string
	filterBefore     string
	filterSkipHidden bool
)

func addFilterFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringArrayVar(&filterExcludes, "exclude", nil, "Skip keys matching this glob (repeatable)")
	f.StringVar(&filterMinSize, "min-size", "", "Only objects at least this large (e.g. 10KB)")
	f.StringVar(&filterMaxSize, "max-size", "", "Only objects at most this large (e.g. 1GiB)")
	f.StringVar(&filterAfter, "after", "", "Only objects modified at or after (2024-01-15 or RFC 3339)")
	f.StringVar(&filterBefore, "before", "", "Only objects modified before (2024-01-15 or RFC 3339)")
	f.BoolVar(&filterSkipHidden, "skip-hidden", false, "Skip keys with a segment starting with '.'")
}

// filtersSet reports whether any filter flag narrows the objects.
func filtersSet() bool {
	return len(filterExcludes) > 0 || filterMinSize != "" || filterMaxSize != "" ||
		filterAfter != "" || filterBefore != "" || filterSkipHidden
}

// newMatcher builds the matcher for loc from its pattern and the filter
// flags.
func newMatcher(loc Location) (*match.Matcher, error) {
	cfg := match.Config{
		Excludes:      filterExcludes,
		IncludeHidden: !filterSkipHidden,
		MinSize:       filterMinSize,
		MaxSize:       filterMaxSize,
		After:         filterAfter,
		Before:        filterBefore,
	}
	if loc.Pattern != "" {
		cfg.Includes = []string{loc.Pattern}
	}
	m, err := match.New(cfg)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}
	return m, nil
}

// resolveObjects returns every object beneath loc's directory prefix that
// m accepts.
func resolveObjects(ctx context.Context, s *explorer.Session, loc Location, m *match.Matcher) ([]listing.ObjectRecord, error) {
	all, err := s.Expand(ctx, loc.Container, nil, []string{loc.Key})
	if err != nil {
		return nil, err
	}
	return m.Filter(all), nil
}
