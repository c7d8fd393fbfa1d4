package cmd

import (
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/transfer"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

var putCmd = &cobra.Command{
	Use:   "put <container>[/prefix/] <path>...",
	Short: "Upload local files",
	Long: `Upload local files into a container directory.

Each path argument may itself hold several paths separated by ";". Every
file lands under the destination prefix by its base name.

Examples:
  skybrowse put media/photos/ cat.png dog.png
  skybrowse put media/photos/ "cat.png;dog.png"
  skybrowse put media ./report.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := ParseLocation(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid destination", err)
	}
	if loc.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "Invalid destination", ErrInvalidLocation)
	}
	prefix := loc.Key
	if prefix != "" && !strings.HasSuffix(prefix, vpath.Separator) {
		prefix += vpath.Separator
	}

	paths := strings.Join(args[1:], transfer.PathListSeparator)
	if len(transfer.SplitPaths(paths)) == 0 {
		return exitError(foundry.ExitInvalidArgument, "No files to upload", ErrInvalidLocation)
	}

	cc, err := openContainer(cmd, loc.Container)
	if err != nil {
		return err
	}
	defer cc.close()

	observability.CLILogger.Debug("Uploading",
		zap.String("container", loc.Container), zap.String("prefix", prefix), zap.String("paths", paths))

	res, err := cc.session.Upload(ctx, paths, prefix)
	if err != nil {
		return storeExitError("Failed to plan upload", err)
	}
	return cc.reportBatch(ctx, "upload", res)
}
