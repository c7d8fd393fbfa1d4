package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

var getCmd = &cobra.Command{
	Use:   "get <location> [dir]",
	Short: "Download objects",
	Long: `Download an object, a virtual directory, or every object matching a
glob. Keys are recreated as paths beneath the local directory.

With --save-as the second argument is the exact local file for a single
object.

Examples:
  skybrowse get media/photos/cat.png ./downloads
  skybrowse get media/photos/cat.png ./kitty.png --save-as
  skybrowse get media/photos/ ./downloads
  skybrowse get "media/**/*.mp3" ./music`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var getSaveAs bool

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVar(&getSaveAs, "save-as", false, "Treat the target as the exact local file path")
	addFilterFlags(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := ParseLocation(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	}
	target := "."
	if len(args) == 2 {
		target = args[1]
	}
	if getSaveAs && (loc.IsDir() || loc.IsPattern()) {
		return exitError(foundry.ExitInvalidArgument, "--save-as needs a single object", ErrInvalidLocation)
	}
	if getSaveAs && len(args) < 2 {
		return exitError(foundry.ExitInvalidArgument, "--save-as needs a target path", ErrInvalidLocation)
	}

	cc, err := openContainer(cmd, loc.Container)
	if err != nil {
		return err
	}
	defer cc.close()

	observability.CLILogger.Debug("Downloading", zap.String("location", loc.String()), zap.String("target", target))

	var res *transfer.BatchResult
	if loc.IsPattern() || loc.IsDir() {
		if err := selectLocations(ctx, cc, []Location{loc}); err != nil {
			return storeExitError("Failed to resolve "+loc.String(), err)
		}
		res, err = cc.session.DownloadSelected(ctx, target)
	} else {
		res, err = cc.session.Download(ctx, loc.Key, target, getSaveAs)
	}
	if err != nil {
		return storeExitError("Failed to download", err)
	}
	return cc.reportBatch(ctx, "download", res)
}
