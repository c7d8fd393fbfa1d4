package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/manifest"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Run a batch manifest",
	Long: `Run the uploads, copies, downloads and deletes described by a YAML or
JSON manifest against one container, in that order. Each phase emits its
own summary record. A failed phase does not stop the later ones.

Example manifest:

  version: "1.0"
  container: media
  uploads:
    - paths: ["cat.png;dog.png"]
      prefix: photos/
  downloads:
    - dirs: [music/]
      target: ./backup
  output:
    destination: file:./run.jsonl

Examples:
  skybrowse run batch.yaml
  skybrowse run batch.json -o table`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

// runFs is the filesystem manifests and output files are read from.
var runFs = afero.NewOsFs()

func init() {
	rootCmd.AddCommand(runCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := manifest.Load(runFs, args[0])
	if err != nil {
		observability.CLILogger.Error("Invalid manifest", zap.String("path", args[0]), zap.Error(err))
		if errors.Is(err, fs.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Manifest not found", err)
		}
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}

	out, closeOut, err := manifestOutput(cmd, m.Output.Destination)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to open output", err)
	}
	defer closeOut()

	store, err := connect(ctx)
	if err != nil {
		return err
	}
	cc := newCommandContextTo(cmd, store, out, m.Output.ProgressEnabled())
	cc.store = store
	defer cc.close()
	cc.session.SwitchContainer(m.Container)

	observability.CLILogger.Info("Running manifest",
		zap.String("path", args[0]),
		zap.String("container", m.Container),
		zap.Int("uploads", len(m.Uploads)),
		zap.Int("downloads", len(m.Downloads)),
		zap.Int("copies", len(m.Copies)))

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if jobs, err := m.UploadJobs(); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid upload step", err)
	} else if len(jobs) > 0 {
		record(cc.reportBatch(ctx, "upload", cc.session.Run(ctx, jobs)))
	}

	if jobs, err := m.CopyJobs(); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid copy step", err)
	} else if len(jobs) > 0 {
		record(cc.reportBatch(ctx, "copy", cc.session.Run(ctx, jobs)))
	}

	for _, step := range m.Downloads {
		res, err := selectAndRun(ctx, cc, step.Keys, step.Dirs, func(ctx context.Context) (*transfer.BatchResult, error) {
			return cc.session.DownloadSelected(ctx, filepath.Clean(step.Target))
		})
		if err != nil {
			record(storeExitError("Failed to download", err))
			continue
		}
		record(cc.reportBatch(ctx, "download", res))
	}

	if m.Deletes != nil {
		res, err := selectAndRun(ctx, cc, m.Deletes.Keys, m.Deletes.Dirs, cc.session.DeleteSelected)
		if err != nil {
			record(storeExitError("Failed to delete", err))
		} else {
			record(cc.reportBatch(ctx, "delete", res))
		}
	}

	return firstErr
}

// selectAndRun replaces the session's selection with keys and dirs and
// runs fn over it.
func selectAndRun(ctx context.Context, cc *commandContext, keys, dirs []string,
	fn func(context.Context) (*transfer.BatchResult, error)) (*transfer.BatchResult, error) {
	sel := cc.session.Selection()
	sel.Clear()
	for _, k := range keys {
		sel.SelectObject(k)
	}
	for _, d := range dirs {
		sel.SelectDirectory(d)
	}
	defer sel.Clear()
	return fn(ctx)
}

// manifestOutput resolves a manifest output destination.
func manifestOutput(cmd *cobra.Command, dest string) (io.Writer, func(), error) {
	path, ok := strings.CutPrefix(dest, "file:")
	if !ok || path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := runFs.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
