package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

var rmCmd = &cobra.Command{
	Use:   "rm <location>...",
	Short: "Delete objects and virtual directories",
	Long: `Delete objects, every object beneath a virtual directory, or every
object matching a glob. All locations must name the same container.

Examples:
  skybrowse rm media/photos/cat.png
  skybrowse rm media/photos/ media/thumbs/
  skybrowse rm "media/**/*.tmp" --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var rmDryRun bool

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().BoolVar(&rmDryRun, "dry-run", false, "Print the keys that would be deleted")
	addFilterFlags(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	locs := make([]Location, 0, len(args))
	for _, arg := range args {
		loc, err := ParseLocation(arg)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
		}
		if loc.Key == "" && !loc.IsPattern() {
			return exitError(foundry.ExitInvalidArgument, "Refusing to delete a whole container; use rmcontainer",
				fmt.Errorf("%w: %s", ErrInvalidLocation, arg))
		}
		if len(locs) > 0 && loc.Container != locs[0].Container {
			return exitError(foundry.ExitInvalidArgument, "Locations span containers",
				fmt.Errorf("%s and %s", locs[0].Container, loc.Container))
		}
		locs = append(locs, loc)
	}

	cc, err := openContainer(cmd, locs[0].Container)
	if err != nil {
		return err
	}
	defer cc.close()

	if err := selectLocations(ctx, cc, locs); err != nil {
		return storeExitError("Failed to resolve locations", err)
	}

	if rmDryRun {
		sel := cc.session.Selection()
		recs, err := cc.session.Expand(ctx, locs[0].Container, sel.Objects(), sel.Directories())
		if err != nil {
			return storeExitError("Failed to resolve locations", err)
		}
		for _, r := range recs {
			_, _ = fmt.Fprintln(cc.out, transfer.Delete{Container: r.Container, Key: r.ID}.Source())
		}
		return nil
	}

	observability.CLILogger.Info("Deleting", zap.String("selection", cc.session.Selection().Summary()))
	res, err := cc.session.DeleteSelected(ctx)
	if err != nil {
		return storeExitError("Failed to delete", err)
	}
	return cc.reportBatch(ctx, "delete", res)
}

// selectLocations marks each location in the session's selection: objects
// by key and directories by prefix. Globs, and directories narrowed by
// filter flags, are resolved to the matching keys.
func selectLocations(ctx context.Context, cc *commandContext, locs []Location) error {
	sel := cc.session.Selection()
	for _, loc := range locs {
		switch {
		case loc.IsPattern(), loc.IsDir() && filtersSet():
			m, err := newMatcher(loc)
			if err != nil {
				return err
			}
			recs, err := resolveObjects(ctx, cc.session, loc, m)
			if err != nil {
				return err
			}
			for _, r := range recs {
				sel.SelectObject(r.ID)
			}
		case loc.IsDir():
			sel.SelectDirectory(loc.Key)
		default:
			sel.SelectObject(loc.Key)
		}
	}
	return nil
}
