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

var cpCmd = &cobra.Command{
	Use:   "cp <source> <container>[/prefix/]",
	Short: "Copy objects between containers",
	Long: `Copy objects server-side into another container.

Without a target prefix the full source key is kept. With a prefix the
objects land beneath it, keeping their path relative to the source
directory. --rename maps that relative key through a template with
{key}, {name}, {stem}, {ext} and {dir[n]} placeholders.

Examples:
  skybrowse cp media/photos/cat.png archive
  skybrowse cp media/photos/cat.png archive/2024/
  skybrowse cp media/photos/ archive/photos/
  skybrowse cp "media/**/*.mp3" archive/music/
  skybrowse cp media/photos/ archive/flat/ --rename "{dir[0]}-{name}"`,
	Args: cobra.ExactArgs(2),
	RunE: runCp,
}

var cpRename string

func init() {
	rootCmd.AddCommand(cpCmd)
	cpCmd.Flags().StringVar(&cpRename, "rename", "", "Target key template applied to each key below the source directory")
	addFilterFlags(cpCmd)
}

func runCp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := ParseLocation(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid source", err)
	}
	dst, err := ParseLocation(args[1])
	if err != nil || dst.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "Invalid destination", ErrInvalidLocation)
	}
	targetPrefix := dst.Key
	if targetPrefix != "" && !strings.HasSuffix(targetPrefix, vpath.Separator) {
		targetPrefix += vpath.Separator
	}
	var rename *transfer.KeyTemplate
	if cpRename != "" {
		if rename, err = transfer.ParseKeyTemplate(cpRename); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid rename template", err)
		}
	}

	cc, err := openContainer(cmd, src.Container)
	if err != nil {
		return err
	}
	defer cc.close()

	if !src.IsDir() && !src.IsPattern() && rename == nil {
		res, err := cc.session.CopyTo(ctx, src.Key, dst.Container, targetPrefix)
		if err != nil {
			return storeExitError("Failed to copy", err)
		}
		return cc.reportBatch(ctx, "copy", res)
	}

	if err := selectLocations(ctx, cc, []Location{src}); err != nil {
		return storeExitError("Failed to resolve "+src.String(), err)
	}
	sel := cc.session.Selection()
	recs, err := cc.session.Expand(ctx, src.Container, sel.Objects(), sel.Directories())
	if err != nil {
		return storeExitError("Failed to resolve "+src.String(), err)
	}

	jobs := make([]transfer.Job, 0, len(recs))
	for _, r := range recs {
		if r.IsFolderMarker() {
			continue
		}
		var job transfer.Job
		if rename != nil {
			job, err = transfer.RenamedCopyJob(src.Container, r.ID, relativeKey(src, r.ID), dst.Container, targetPrefix, rename)
		} else {
			prefix := ""
			if targetPrefix != "" {
				prefix = targetPrefix + relativeDir(src.Key, r.ID)
			}
			job, err = transfer.CopyJob(src.Container, r.ID, dst.Container, prefix)
		}
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid copy", err)
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return cc.reportBatch(ctx, "copy", nil)
	}

	observability.CLILogger.Debug("Copying", zap.Int("objects", len(jobs)), zap.String("target", dst.String()))
	return cc.reportBatch(ctx, "copy", cc.session.Run(ctx, jobs))
}

// relativeKey returns key below the source location's directory. A single
// object source yields its base name.
func relativeKey(src Location, key string) string {
	if !src.IsDir() && !src.IsPattern() {
		return vpath.BaseName(key)
	}
	return strings.TrimPrefix(key, src.Key)
}

// relativeDir returns the directory part of key below base
// ("a/", "a/b/c.txt" → "b/").
func relativeDir(base, key string) string {
	rel := strings.TrimPrefix(key, base)
	return rel[:len(rel)-len(vpath.BaseName(rel))]
}
