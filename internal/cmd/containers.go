package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

var containersCmd = &cobra.Command{
	Use:   "containers [filter]",
	Short: "List containers",
	Long: `List the containers of the configured account.

An optional filter keeps only containers whose name contains it.

Examples:
  skybrowse containers
  skybrowse containers media -o table`,
	Args: cobra.MaximumNArgs(1),
	RunE: runContainers,
}

var mkcontainerCmd = &cobra.Command{
	Use:   "mkcontainer <name>",
	Short: "Create a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkcontainer,
}

var rmcontainerCmd = &cobra.Command{
	Use:   "rmcontainer <name>",
	Short: "Delete a container and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmcontainer,
}

func init() {
	rootCmd.AddCommand(containersCmd)
	rootCmd.AddCommand(mkcontainerCmd)
	rootCmd.AddCommand(rmcontainerCmd)
}

func runContainers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	store, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cc := newCommandContext(cmd, store)
	defer cc.close()

	infos, err := cc.session.Containers(ctx, filter)
	if err != nil {
		observability.CLILogger.Error("Failed to list containers", zap.Error(err))
		return storeExitError("Failed to list containers", err)
	}

	if outputFormat() == "table" {
		writeContainersTable(cc.out, infos)
		return nil
	}
	for _, info := range infos {
		rec := &output.ContainerRecord{Name: info.Name, LastModified: info.LastModified, PublicAccess: info.PublicAccess}
		if err := cc.writer.WriteContainer(ctx, rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return nil
}

func runMkcontainer(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, args[0], "create", func(cc *commandContext) error {
		return cc.session.CreateContainer(cmd.Context(), args[0])
	})
}

func runRmcontainer(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, args[0], "delete", func(cc *commandContext) error {
		return cc.session.DeleteContainer(cmd.Context(), args[0])
	})
}

func withContainer(cmd *cobra.Command, name, verb string, fn func(*commandContext) error) error {
	if err := transfer.ValidateContainer(name); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid container name", err)
	}

	store, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cc := newCommandContext(cmd, store)
	defer cc.close()

	if err := fn(cc); err != nil {
		observability.CLILogger.Error("Container operation failed",
			zap.String("container", name), zap.String("op", verb), zap.Error(err))
		return storeExitError(fmt.Sprintf("Failed to %s container %s", verb, name), err)
	}
	observability.CLILogger.Info("Container "+verb+"d", zap.String("container", name))
	_, _ = fmt.Fprintf(cc.out, "Container %s %sd\n", name, verb)
	return nil
}
