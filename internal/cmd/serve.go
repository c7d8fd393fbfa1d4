package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/internal/server"
	"github.com/3leaps/skybrowse/internal/server/handlers"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/provider"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only browse API over HTTP",
	Long: `Serve the browse API: container listings, directory entries with
breadcrumbs, and temporary links, plus health and version endpoints.

Examples:
  skybrowse serve
  skybrowse serve --port 9090 --host 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: server.port)")
}

// signalHealthChecker reports healthy while the process is able to answer.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(context.Context) error { return nil }

// storeHealthChecker reports whether the backend answers a container listing.
type storeHealthChecker struct {
	store provider.Provider
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("store not connected")
	}
	_, err := explorer.NewSession(c.store, explorer.DefaultConfig()).Containers(ctx, "")
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if cfg == nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration not loaded", nil)
	}
	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	if err := observability.InitServerLogger("skybrowse", cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	logger := observability.ServerLogger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cfg.Health.Enabled {
		hm := handlers.InitHealthManager(versionInfo.Version)
		hm.RegisterChecker("process", signalHealthChecker{})
		hm.RegisterChecker("store", storeHealthChecker{store: store})
	}

	sessionCfg := explorer.Config{Listing: cfg.ListingSettings(), Transfer: cfg.TransferSettings()}
	srv := server.New(host, port,
		server.WithBrowse(handlers.NewBrowse(store, sessionCfg).WithLogger(logger)),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		server.WithCORSOrigins(cfg.Server.CORSOrigins),
		server.WithTimeouts(server.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
			Idle:  cfg.Server.IdleTimeout,
		}),
	)

	logger.Info("Starting browse API",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("provider", cfg.Store.Provider),
		zap.String("version", versionInfo.Version))

	if err := srv.Start(ctx, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	logger.Info("Server stopped")
	return nil
}
