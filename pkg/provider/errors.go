package provider

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Sentinel errors for provider operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrContainerNotFound indicates the container does not exist.
	ErrContainerNotFound = errors.New("container not found")

	// ErrAlreadyExists indicates a container with the requested name already exists.
	ErrAlreadyExists = errors.New("container already exists")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the provider service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNetworkUnreachable indicates the endpoint could not be resolved or reached.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")

	// ErrUnsupported indicates the provider lacks a capability the caller needs.
	ErrUnsupported = errors.New("operation not supported by provider")
)

// ProviderError wraps provider-specific errors with context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "List", "Head").
	Op string

	// Provider is the provider type (e.g., "s3").
	Provider ProviderType

	// Container is the container name, if applicable.
	Container string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Container, e.Key, e.Err)
	}
	if e.Container != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Container, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsContainerNotFound returns true if the error indicates the container does not exist.
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

// IsAlreadyExists returns true if the error indicates a container name collision.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates the provider service is unavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsNetworkUnreachable returns true if the error indicates the endpoint could not be reached.
func IsNetworkUnreachable(err error) bool {
	return errors.Is(err, ErrNetworkUnreachable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnsupported returns true if the provider lacks the requested capability.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsAuthRejected reports whether err means the store refused the caller's identity.
func IsAuthRejected(err error) bool {
	return IsInvalidCredentials(err) || IsAccessDenied(err)
}

// IsNetworkFailure inspects a raw transport error (before wrapping) and reports
// whether it is a DNS or connection-level failure.
//
// Backends call this from their wrapError to map transport failures onto
// ErrNetworkUnreachable.
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// Host returns the host name from a DNS failure inside err, or "".
func Host(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Name
	}
	return ""
}

// Guidance returns a user-facing explanation for well-known failure classes.
// It returns "" when err carries no actionable hint.
func Guidance(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNetworkUnreachable(err):
		if host := Host(err); host != "" {
			return "Connection to " + host + " failed. Check your internet connection, the account name and the endpoint suffix."
		}
		return "Connection to the storage endpoint failed. Check your internet connection, the account name and the endpoint suffix."
	case IsInvalidCredentials(err):
		return "The connection succeeded, but the store rejected the account key. Check it and try again."
	case IsAccessDenied(err):
		return "The credentials are valid but lack permission for this operation."
	case IsContainerNotFound(err):
		return "The container does not exist. List containers to check the name."
	case IsThrottled(err):
		return "The store is throttling requests. Wait and retry."
	}
	return ""
}
