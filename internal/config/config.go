// Package config loads skybrowse configuration from defaults, an optional
// config file, a .env file, the environment and runtime overrides.
package config

import (
	"fmt"
	"time"

	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// Config is the full skybrowse configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Health   HealthConfig   `mapstructure:"health"`
	Store    StoreConfig    `mapstructure:"store"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Listing  ListingConfig  `mapstructure:"listing"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ServerConfig configures the HTTP browse API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// HealthConfig configures health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StoreConfig selects and connects the storage backend. Which fields
// apply depends on Provider.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`

	// file
	BaseDir string `mapstructure:"base_dir"`

	// s3 and minio
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Profile        string `mapstructure:"profile"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	SessionToken   string `mapstructure:"session_token"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	UseSSL         bool   `mapstructure:"use_ssl"`

	// azure
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	SASURL           string `mapstructure:"sas_url"`
}

// TransferConfig configures the transfer orchestrator.
type TransferConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	LinkTTL            time.Duration `mapstructure:"link_ttl"`
	RetryBufferMaxSize int64         `mapstructure:"retry_buffer_max_bytes"`
}

// ListingConfig configures directory and object listings.
type ListingConfig struct {
	PageSize  int     `mapstructure:"page_size"`
	MaxPages  int     `mapstructure:"max_pages"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// OutputConfig configures CLI output.
type OutputConfig struct {
	// Format is jsonl or table.
	Format string `mapstructure:"format"`
}

// Validate checks cross-field constraints that decoding cannot.
func (c *Config) Validate() error {
	if _, ok := provider.ParseProviderType(c.Store.Provider); !ok {
		return fmt.Errorf("store.provider: unsupported provider %q", c.Store.Provider)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Transfer.PollInterval <= 0 {
		return fmt.Errorf("transfer.poll_interval: must be positive")
	}
	if c.Transfer.LinkTTL <= 0 {
		return fmt.Errorf("transfer.link_ttl: must be positive")
	}
	switch c.Output.Format {
	case "jsonl", "table":
	default:
		return fmt.Errorf("output.format: expected jsonl or table, got %q", c.Output.Format)
	}
	return nil
}

// TransferSettings returns the orchestrator configuration.
func (c *Config) TransferSettings() transfer.Config {
	return transfer.Config{
		PollInterval:              c.Transfer.PollInterval,
		LinkTTL:                   c.Transfer.LinkTTL,
		RetryBufferMaxMemoryBytes: c.Transfer.RetryBufferMaxSize,
	}
}

// ListingSettings returns the listing configuration.
func (c *Config) ListingSettings() listing.Config {
	return listing.Config{
		PageSize:  c.Listing.PageSize,
		MaxPages:  c.Listing.MaxPages,
		RateLimit: c.Listing.RateLimit,
	}
}
