// Package cmd implements the skybrowse command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/skybrowse/internal/config"
	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/internal/server/handlers"
)

type buildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = buildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

// SetVersionInfo records build information for the version command and
// the /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = buildInfo{Version: version, Commit: commit, BuildDate: buildDate}
	handlers.SetVersionInfo(handlers.VersionInfo{Version: version, Commit: commit, BuildDate: buildDate})
}

// Persistent flags.
var (
	flagConfigFile string
	flagProvider   string
	flagBaseDir    string
	flagEndpoint   string
	flagRegion     string
	flagProfile    string
	flagAccount    string
	flagOutput     string
	flagVerbose    bool
)

// appConfig is the configuration loaded before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "skybrowse",
	Short: "Browse and transfer objects in cloud storage containers",
	Long: `skybrowse lists containers, navigates the virtual directories inside them,
and uploads, downloads, copies and deletes objects in concurrent batches.

Backends: Azure Blob Storage, S3 and S3-compatible stores, MinIO, and a local
directory where each subdirectory is a container.

Locations are written container/key or container:/key. A trailing slash
names a virtual directory.

Examples:
  skybrowse containers
  skybrowse ls media/photos/
  skybrowse put media/photos/ "cat.png;dog.png"
  skybrowse get media/photos/cat.png ./downloads
  skybrowse browse media`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigFile, "config", "", "Config file (default: ./skybrowse.yaml or the user config dir)")
	pf.StringVar(&flagProvider, "provider", "", "Storage backend (azure|s3|minio|file)")
	pf.StringVar(&flagBaseDir, "base-dir", "", "Root directory for the file backend")
	pf.StringVar(&flagEndpoint, "endpoint", "", "Custom service endpoint")
	pf.StringVarP(&flagRegion, "region", "r", "", "Region (s3, minio)")
	pf.StringVarP(&flagProfile, "profile", "p", "", "AWS shared config profile (s3)")
	pf.StringVar(&flagAccount, "account", "", "Storage account name (azure)")
	pf.StringVarP(&flagOutput, "output", "o", "", "Output format (jsonl|table)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	observability.InitCLILogger("skybrowse", flagVerbose)

	cfg, err := config.LoadFile(cmd.Context(), flagConfigFile, flagOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	appConfig = cfg
	return nil
}

// flagOverrides returns only flags the user set, so unset flags do not mask
// the config file or environment.
func flagOverrides(cmd *cobra.Command) map[string]any {
	store := map[string]any{}
	set := func(flag, key, val string) {
		if cmd.Flags().Changed(flag) {
			store[key] = val
		}
	}
	set("provider", "provider", flagProvider)
	set("base-dir", "base_dir", flagBaseDir)
	set("endpoint", "endpoint", flagEndpoint)
	set("region", "region", flagRegion)
	set("profile", "profile", flagProfile)
	set("account", "account_name", flagAccount)

	overrides := map[string]any{}
	if len(store) > 0 {
		overrides["store"] = store
	}
	if cmd.Flags().Changed("output") {
		overrides["output"] = map[string]any{"format": flagOutput}
	}
	if flagVerbose {
		overrides["logging"] = map[string]any{"level": "debug"}
	}
	return overrides
}

func outputFormat() string {
	if appConfig == nil {
		return "jsonl"
	}
	return appConfig.Output.Format
}

func versionString() string {
	return fmt.Sprintf("skybrowse %s (commit %s, built %s)", versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
}
