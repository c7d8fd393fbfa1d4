package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/3leaps/skybrowse/pkg/transfer"
)

const (
	// AppName names the config file and the user config directory.
	AppName = "skybrowse"

	// EnvPrefix prefixes every mapped environment variable.
	EnvPrefix = "SKYBROWSE_"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps an environment variable to a config path. Aliases are
// consulted in order when Name is unset.
type envSpec struct {
	Name    string
	Path    string
	Aliases []string
}

// Load builds the configuration with precedence, highest first:
// runtime overrides, environment, .env file, config file, defaults.
// The result becomes the value returned by GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile is Load with an explicit config file. An empty path searches
// the working directory and the user config directory for skybrowse.yaml;
// a missing file is not an error in that case.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	for _, spec := range getEnvSpecs() {
		args := append([]string{spec.Path, spec.Name}, spec.Aliases...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}
	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("health.enabled", true)

	v.SetDefault("store.provider", "file")
	v.SetDefault("store.base_dir", ".")
	v.SetDefault("store.region", "")
	v.SetDefault("store.force_path_style", false)
	v.SetDefault("store.use_ssl", true)

	v.SetDefault("transfer.poll_interval", transfer.DefaultPollInterval.String())
	v.SetDefault("transfer.link_ttl", transfer.DefaultLinkTTL.String())
	v.SetDefault("transfer.retry_buffer_max_bytes", transfer.DefaultRetryBufferMaxMemoryBytes)

	v.SetDefault("listing.page_size", 0)
	v.SetDefault("listing.max_pages", 0)
	v.SetDefault("listing.rate_limit", 0.0)

	v.SetDefault("output.format", "jsonl")
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range getUserConfigPaths() {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// loadDotEnv exports variables from path without overriding ones already
// set in the process environment.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func getUserConfigPaths() []string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return nil
	}
	return []string{filepath.Join(dir, AppName)}
}

func getEnvSpecs() []envSpec {
	specs := []envSpec{
		{Name: "HOST", Path: "server.host"},
		{Name: "PORT", Path: "server.port"},
		{Name: "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: "IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: "RATE_LIMIT", Path: "server.rate_limit"},
		{Name: "RATE_BURST", Path: "server.rate_burst"},
		{Name: "CORS_ORIGINS", Path: "server.cors_origins"},
		{Name: "LOG_LEVEL", Path: "logging.level"},
		{Name: "LOG_PROFILE", Path: "logging.profile"},
		{Name: "HEALTH_ENABLED", Path: "health.enabled"},
		{Name: "PROVIDER", Path: "store.provider"},
		{Name: "BASE_DIR", Path: "store.base_dir"},
		{Name: "ENDPOINT", Path: "store.endpoint"},
		{Name: "REGION", Path: "store.region", Aliases: []string{"AWS_REGION"}},
		{Name: "PROFILE", Path: "store.profile", Aliases: []string{"AWS_PROFILE"}},
		{Name: "ACCESS_KEY", Path: "store.access_key"},
		{Name: "SECRET_KEY", Path: "store.secret_key"},
		{Name: "SESSION_TOKEN", Path: "store.session_token"},
		{Name: "FORCE_PATH_STYLE", Path: "store.force_path_style"},
		{Name: "USE_SSL", Path: "store.use_ssl"},
		{Name: "ACCOUNT_NAME", Path: "store.account_name", Aliases: []string{"AZURE_STORAGE_ACCOUNT"}},
		{Name: "ACCOUNT_KEY", Path: "store.account_key", Aliases: []string{"AZURE_STORAGE_ACCESS_KEY", "AZURE_STORAGE_KEY"}},
		{Name: "CONNECTION_STRING", Path: "store.connection_string", Aliases: []string{"AZURE_STORAGE_CONNECTION_STRING"}},
		{Name: "SAS_URL", Path: "store.sas_url"},
		{Name: "POLL_INTERVAL", Path: "transfer.poll_interval"},
		{Name: "LINK_TTL", Path: "transfer.link_ttl"},
		{Name: "RETRY_BUFFER_MAX_BYTES", Path: "transfer.retry_buffer_max_bytes"},
		{Name: "PAGE_SIZE", Path: "listing.page_size"},
		{Name: "MAX_PAGES", Path: "listing.max_pages"},
		{Name: "LIST_RATE_LIMIT", Path: "listing.rate_limit"},
		{Name: "OUTPUT", Path: "output.format"},
	}
	for i := range specs {
		specs[i].Name = EnvPrefix + specs[i].Name
	}
	return specs
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			maps.Copy(out, flatten(key, nested))
			continue
		}
		out[key] = val
	}
	return out
}
