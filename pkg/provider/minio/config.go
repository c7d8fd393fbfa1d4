// Package minio implements the provider interface for MinIO servers using minio-go.
package minio

import (
	"net/url"
	"strings"
)

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 1000

// Config configures a MinIO provider.
//
// Endpoint may be a bare host:port or a URL. A URL scheme overrides UseSSL.
type Config struct {
	// Endpoint is the server address, e.g. "localhost:9000" or "https://minio.example.com".
	Endpoint string

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// SessionToken is an optional STS session token.
	SessionToken string

	// UseSSL selects https for bare host:port endpoints.
	UseSSL bool

	// Region is sent with requests and used when creating buckets.
	Region string

	// MaxKeys is the default page size for listings.
	MaxKeys int
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required"}
	}
	if _, _, err := c.hostAndSecure(); err != nil {
		return &ConfigError{Field: "Endpoint", Message: "endpoint must be host:port or an http(s) URL"}
	}
	if (c.AccessKey != "") != (c.SecretKey != "") {
		return &ConfigError{Field: "AccessKey/SecretKey", Message: "both access key and secret key must be provided together"}
	}
	if c.MaxKeys < 0 {
		return &ConfigError{Field: "MaxKeys", Message: "must be non-negative"}
	}
	return nil
}

// hostAndSecure splits the endpoint into the host form minio-go expects and
// the effective TLS setting.
func (c *Config) hostAndSecure() (string, bool, error) {
	if !strings.Contains(c.Endpoint, "://") {
		return strings.TrimRight(c.Endpoint, "/"), c.UseSSL, nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", false, err
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	}
	return "", false, &url.Error{Op: "parse", URL: c.Endpoint, Err: errUnsupportedScheme}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}
