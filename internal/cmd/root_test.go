package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/internal/config"
)

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2024-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestFlagOverrides(t *testing.T) {
	resetFlags(rootCmd)
	defer resetFlags(rootCmd)

	t.Run("no flags set", func(t *testing.T) {
		assert.Empty(t, flagOverrides(rootCmd))
	})

	t.Run("only changed flags", func(t *testing.T) {
		require.NoError(t, rootCmd.ParseFlags([]string{"--provider", "s3", "-r", "eu-west-1", "-o", "table", "-v"}))

		overrides := flagOverrides(rootCmd)
		assert.Equal(t, map[string]any{"provider": "s3", "region": "eu-west-1"}, overrides["store"])
		assert.Equal(t, map[string]any{"format": "table"}, overrides["output"])
		assert.Equal(t, map[string]any{"level": "debug"}, overrides["logging"])
	})
}

func TestOutputFormat(t *testing.T) {
	orig := appConfig
	defer func() { appConfig = orig }()

	appConfig = nil
	assert.Equal(t, "jsonl", outputFormat())

	appConfig = &config.Config{Output: config.OutputConfig{Format: "table"}}
	assert.Equal(t, "table", outputFormat())
}

func TestVersionString(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	SetVersionInfo("1.2.3", "abc", "2025-01-01")
	assert.Equal(t, "skybrowse 1.2.3 (commit abc, built 2025-01-01)", versionString())
}
