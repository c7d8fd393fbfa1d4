package cmd

import (
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/notify"
	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// commandContext bundles what a store command needs: the session, the
// record writer, and the progress bars to wait on.
type commandContext struct {
	session *explorer.Session
	writer  output.Writer
	bars    *notify.BarSink
	out     io.Writer
	store   provider.Provider
}

// newCommandContext builds a session over store whose listing errors and
// transfer records go to the command's stdout as JSONL, or only to the
// terminal bars in table mode.
func newCommandContext(cmd *cobra.Command, store provider.Provider) *commandContext {
	return newCommandContextTo(cmd, store, cmd.OutOrStdout(), true)
}

// newCommandContextTo is newCommandContext writing records to out.
// Without progress no per-transfer records are emitted.
func newCommandContextTo(cmd *cobra.Command, store provider.Provider, out io.Writer, progress bool) *commandContext {
	w := output.NewJSONLWriter(out, uuid.NewString(), providerName())

	var sinks []notify.Sink
	if outputFormat() == "jsonl" && progress {
		sinks = append(sinks, notify.NewJSONLSink(cmd.Context(), w).WithLogger(observability.CLILogger))
	}
	var bars *notify.BarSink
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		bars = notify.NewBarSink(f)
		sinks = append(sinks, bars)
	}

	cfg := explorer.DefaultConfig()
	if appConfig != nil {
		cfg.Listing = appConfig.ListingSettings()
		cfg.Transfer = appConfig.TransferSettings()
	}
	s := explorer.NewSession(store, cfg).
		WithLogger(observability.CLILogger).
		WithSink(notify.Multi(sinks...))
	if outputFormat() == "jsonl" {
		s.WithWriter(w)
	}
	return &commandContext{session: s, writer: w, bars: bars, out: out}
}

// waitBars blocks until progress bars finished drawing.
func (c *commandContext) waitBars() {
	if c.bars != nil {
		c.bars.Wait()
	}
}

func (c *commandContext) close() {
	_ = c.writer.Close()
	if c.store != nil {
		_ = c.store.Close()
	}
}

func providerName() string {
	if appConfig == nil {
		return ""
	}
	return appConfig.Store.Provider
}

// openContainer connects the store and returns a command context whose
// session is positioned at the root of container.
func openContainer(cmd *cobra.Command, container string) (*commandContext, error) {
	if err := transfer.ValidateContainer(container); err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid container name", err)
	}
	store, err := connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	cc := newCommandContext(cmd, store)
	cc.store = store
	cc.session.SwitchContainer(container)
	return cc, nil
}
