// Package azure implements the provider interface for Azure Blob Storage.
package azure

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultDNSSuffix is the blob endpoint suffix for the public Azure cloud.
const DefaultDNSSuffix = "core.windows.net"

// DefaultMaxResults is the default page size for blob listings.
const DefaultMaxResults = 1000

// DefaultCopyPollInterval is how often a pending server-side copy is polled.
const DefaultCopyPollInterval = 500 * time.Millisecond

// Config configures an Azure Blob Storage provider.
//
// Exactly one authentication source is used, in this order:
//  1. ConnectionString
//  2. AccountName + AccountKey (shared key)
//  3. SASURL (service URL carrying a SAS token)
//
// Temporary links (PresignGet) require shared key or connection string auth.
type Config struct {
	// AccountName is the storage account name.
	AccountName string

	// AccountKey is the base64 encoded shared key.
	AccountKey string

	// DNSSuffix overrides the endpoint suffix. Empty means core.windows.net.
	DNSSuffix string

	// Endpoint overrides the full service URL (e.g., an Azurite emulator).
	Endpoint string

	// ConnectionString is a full storage connection string.
	ConnectionString string

	// SASURL is a service URL with a SAS token query.
	SASURL string

	// MaxResults is the default page size for listings.
	MaxResults int

	// CopyPollInterval controls server-side copy status polling.
	CopyPollInterval time.Duration
}

// Validate checks that one authentication source is fully configured.
func (c *Config) Validate() error {
	switch {
	case c.ConnectionString != "":
		return nil
	case c.AccountName != "" || c.AccountKey != "":
		if c.AccountName == "" {
			return &ConfigError{Field: "AccountName", Message: "account name is required with an account key"}
		}
		if c.AccountKey == "" {
			return &ConfigError{Field: "AccountKey", Message: "account key is required with an account name"}
		}
	case c.SASURL != "":
		u, err := url.Parse(c.SASURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Field: "SASURL", Message: "SAS URL must be an absolute URL"}
		}
	default:
		return &ConfigError{Field: "AccountName", Message: "one of connection string, account name/key, or SAS URL is required"}
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Field: "Endpoint", Message: "endpoint must be an absolute URL"}
		}
	}
	return nil
}

// ServiceURL returns the blob service URL for account-key authentication.
func (c *Config) ServiceURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/") + "/"
	}
	suffix := strings.TrimPrefix(c.DNSSuffix, ".")
	if suffix == "" {
		suffix = DefaultDNSSuffix
	}
	return fmt.Sprintf("https://%s.blob.%s/", c.AccountName, suffix)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "azure config: " + e.Field + ": " + e.Message
}
