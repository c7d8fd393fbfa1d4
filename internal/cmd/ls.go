package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/match"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

var lsCmd = &cobra.Command{
	Use:   "ls <location>",
	Short: "List a virtual directory",
	Long: `List the directories and objects directly beneath a location.

A location ending in a slash (or a bare container name) is a directory.
A location containing glob characters lists every matching object below
the pattern's directory.

Examples:
  skybrowse ls media
  skybrowse ls media/photos/ --sort size --desc
  skybrowse ls "media/photos/**/*.png"
  skybrowse ls media/photos/ --recursive --min-size 1MB --exclude "**/.cache/**"`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var (
	lsSort      string
	lsDesc      bool
	lsRecursive bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringVar(&lsSort, "sort", "name", "Sort objects by name, size or modified")
	lsCmd.Flags().BoolVar(&lsDesc, "desc", false, "Sort in descending order")
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "R", false, "List every object beneath the directory")
	addFilterFlags(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := ParseLocation(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	}
	sortBy := listing.SortBy(lsSort)
	switch sortBy {
	case listing.SortByName, listing.SortBySize, listing.SortByModified:
	default:
		return exitError(foundry.ExitInvalidArgument, "Invalid sort order", fmt.Errorf("unknown sort %q", lsSort))
	}

	m, err := newMatcher(loc)
	if err != nil {
		return err
	}

	cc, err := openContainer(cmd, loc.Container)
	if err != nil {
		return err
	}
	defer cc.close()

	snap, err := listLocation(ctx, cc, loc, m)
	if err != nil {
		observability.CLILogger.Error("Failed to list", zap.String("location", loc.String()), zap.Error(err))
		return storeExitError("Failed to list "+loc.String(), err)
	}
	listing.Sort(snap.Objects, sortBy, lsDesc)

	observability.CLILogger.Debug("Listed location",
		zap.String("location", loc.String()),
		zap.Int("directories", len(snap.Directories)),
		zap.Int("objects", len(snap.Objects)))

	if outputFormat() == "table" {
		writeEntriesTable(cc.out, snap, nil)
		return nil
	}
	for _, d := range snap.Directories {
		if err := cc.writer.WriteDirectory(ctx, d.ToOutput()); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	for _, o := range snap.Objects {
		if err := cc.writer.WriteObject(ctx, o.ToOutput()); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return nil
}

// listLocation resolves loc to the entries ls prints.
func listLocation(ctx context.Context, cc *commandContext, loc Location, m *match.Matcher) (listing.Snapshot, error) {
	snap := listing.Snapshot{Container: loc.Container, Prefix: loc.Key}

	switch {
	case loc.IsPattern(), loc.IsDir() && lsRecursive:
		recs, err := resolveObjects(ctx, cc.session, loc, m)
		snap.Objects = recs
		return snap, err

	case loc.IsDir():
		cc.session.DescendInto(loc.Key)
		listed, err := cc.session.Refresh(ctx)
		if err != nil || !filtersSet() {
			return listed, err
		}
		listed.Objects = m.Filter(listed.Objects)
		return listed, nil
	}

	// A single object: list its directory and keep the one record.
	parent := loc.Key[:len(loc.Key)-len(vpath.BaseName(loc.Key))]
	cc.session.DescendInto(parent)
	listed, err := cc.session.Refresh(ctx)
	if err != nil {
		return snap, err
	}
	for _, o := range listed.Objects {
		if o.ID == loc.Key {
			snap.Objects = []listing.ObjectRecord{o}
			return snap, nil
		}
	}
	return snap, &provider.ProviderError{Op: "List", Container: loc.Container, Key: loc.Key, Err: provider.ErrNotFound}
}
