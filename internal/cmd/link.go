package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/skybrowse/pkg/provider"
)

var linkCmd = &cobra.Command{
	Use:   "link <container>/<key>",
	Short: "Print a temporary read link for an object",
	Long: `Print a time-bounded URL that grants read access to one object.

Examples:
  skybrowse link media/photos/cat.png
  skybrowse link media/photos/cat.png --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runLink,
}

var linkTTL time.Duration

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().DurationVar(&linkTTL, "ttl", 0, "Link lifetime (default: transfer.link_ttl)")
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := ParseLocation(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	}
	if loc.IsDir() || loc.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "A link needs a single object", ErrInvalidLocation)
	}
	if linkTTL > 0 && appConfig != nil {
		appConfig.Transfer.LinkTTL = linkTTL
	}

	cc, err := openContainer(cmd, loc.Container)
	if err != nil {
		return err
	}
	defer cc.close()

	link, err := cc.session.Link(ctx, loc.Key)
	if err != nil {
		if provider.IsUnsupported(err) {
			return exitError(foundry.ExitInvalidArgument, "The configured backend cannot issue links", err)
		}
		return storeExitError("Failed to create link", err)
	}

	if outputFormat() == "table" {
		_, _ = fmt.Fprintf(cc.out, "%s\nexpires %s\n", link.URL, link.ExpiresAt.Format(time.RFC3339))
		return nil
	}
	if err := cc.writer.WriteLink(ctx, link); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}
