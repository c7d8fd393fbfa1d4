package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/provider"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and the configured backend,
and suggest fixes for common issues.

Examples:
  skybrowse doctor
  skybrowse doctor --provider s3 --region us-east-1`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// doctorTimeout bounds the connectivity check.
var doctorTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorReport struct {
	out   io.Writer
	num   int
	total int
	ok    bool
}

func (r *doctorReport) pass(check, detail string, fields ...zap.Field) {
	r.num++
	_, _ = fmt.Fprintf(r.out, "[%d/%d] %s... ✅ %s\n", r.num, r.total, check, detail)
	observability.CLILogger.Debug(check, fields...)
}

func (r *doctorReport) warn(check, detail string, fields ...zap.Field) {
	r.num++
	r.ok = false
	_, _ = fmt.Fprintf(r.out, "[%d/%d] %s... ⚠️  %s\n", r.num, r.total, check, detail)
	observability.CLILogger.Warn(check, fields...)
}

func (r *doctorReport) fail(check, detail string, err error) {
	r.num++
	r.ok = false
	_, _ = fmt.Fprintf(r.out, "[%d/%d] %s... ❌ %s\n", r.num, r.total, check, detail)
	if g := provider.Guidance(err); g != "" {
		_, _ = fmt.Fprintf(r.out, "      %s\n", g)
	}
	observability.CLILogger.Error(check, zap.Error(err))
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	r := &doctorReport{out: cmd.OutOrStdout(), total: 5, ok: true}
	if appConfig != nil && appConfig.Store.Provider == string(provider.ProviderS3) {
		r.total++
	}

	_, _ = fmt.Fprintln(r.out, "=== skybrowse doctor ===")
	_, _ = fmt.Fprintln(r.out)

	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		r.pass("Checking Go version", goVersion, zap.String("go_version", goVersion))
	} else {
		r.warn("Checking Go version", goVersion+" (recommended: go1.23+)", zap.String("go_version", goVersion))
	}

	r.pass("Checking environment", runtime.GOOS+"/"+runtime.GOARCH,
		zap.String("os", runtime.GOOS), zap.String("arch", runtime.GOARCH))

	if dir, err := os.UserConfigDir(); err != nil {
		r.warn("Checking config directory", "cannot find config directory", zap.Error(err))
	} else {
		r.pass("Checking config directory", dir, zap.String("config_dir", dir))
	}

	if appConfig == nil {
		r.fail("Checking configuration", "not loaded", fmt.Errorf("configuration not loaded"))
		return exitError(foundry.ExitInvalidArgument, "Configuration not loaded", nil)
	}
	r.pass("Checking configuration", "backend "+appConfig.Store.Provider,
		zap.String("provider", appConfig.Store.Provider), zap.String("format", appConfig.Output.Format))

	if appConfig.Store.Provider == string(provider.ProviderS3) {
		checkAWSCredentials(ctx, r)
	}

	checkStore(ctx, r)

	_, _ = fmt.Fprintln(r.out)
	if !r.ok {
		_, _ = fmt.Fprintln(r.out, "⚠️  Some checks failed. Review the output above for details.")
		return exitError(foundry.ExitExternalServiceUnavailable, "Diagnostics failed", nil)
	}
	_, _ = fmt.Fprintln(r.out, "✅ All checks passed.")
	return nil
}

func checkStore(ctx context.Context, r *doctorReport) {
	const check = "Checking backend connectivity"

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	store, err := storeFactory(ctx, appConfig.Store)
	if err != nil {
		r.fail(check, "cannot open backend", err)
		return
	}
	defer func() { _ = store.Close() }()

	infos, err := explorer.NewSession(store, explorer.DefaultConfig()).Containers(ctx, "")
	if err != nil {
		r.fail(check, "cannot list containers", err)
		return
	}
	r.pass(check, fmt.Sprintf("%d containers", len(infos)), zap.Int("containers", len(infos)))
}

func checkAWSCredentials(ctx context.Context, r *doctorReport) {
	const check = "Checking AWS credentials"

	var opts []func(*awsconfig.LoadOptions) error
	if appConfig.Store.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(appConfig.Store.Profile))
	}
	if appConfig.Store.AccessKey != "" {
		r.pass(check, "static key "+maskAccessKey(appConfig.Store.AccessKey))
		return
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		r.fail(check, "cannot load AWS config", err)
		return
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		r.fail(check, "cannot retrieve credentials", err)
		_, _ = fmt.Fprintln(r.out, "      Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, run 'aws configure', or pass --profile.")
		return
	}
	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	r.pass(check, maskAccessKey(creds.AccessKeyID)+" from "+source, zap.String("credential_source", source))
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
