// Package output provides JSONL output for listings and transfers.
//
// Output is structured as typed record envelopes containing directories,
// objects, errors, and transfer progress. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/skybrowse/pkg/provider"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: skybrowse.<type>.v<version>
const (
	// TypeContainer identifies container listing records.
	TypeContainer = "skybrowse.container.v1"

	// TypeDirectory identifies virtual directory records.
	TypeDirectory = "skybrowse.directory.v1"

	// TypeObject identifies object listing records.
	TypeObject = "skybrowse.object.v1"

	// TypeError identifies error records.
	TypeError = "skybrowse.error.v1"

	// TypeProgress identifies transfer progress records.
	TypeProgress = "skybrowse.progress.v1"

	// TypeTransfer identifies settled transfer job records.
	TypeTransfer = "skybrowse.transfer.v1"

	// TypeSummary identifies batch summary records.
	TypeSummary = "skybrowse.summary.v1"

	// TypeLink identifies temporary link records.
	TypeLink = "skybrowse.link.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "skybrowse.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this invocation or batch.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3", "azure").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ContainerRecord is the data payload for container listings.
type ContainerRecord struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified,omitempty"`
	PublicAccess string    `json:"public_access,omitempty"`
}

// DirectoryRecord is the data payload for a virtual directory.
type DirectoryRecord struct {
	// Container is the owning container.
	Container string `json:"container"`

	// Prefix is the full directory prefix, ending in "/".
	Prefix string `json:"prefix"`

	// Name is the display name (last segment without the separator).
	Name string `json:"name"`
}

// ObjectRecord is the data payload for object listings.
type ObjectRecord struct {
	// Container is the owning container.
	Container string `json:"container"`

	// Key is the full object key in the container.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified"`

	// ContentType is the MIME type of the object, when known.
	ContentType string `json:"content_type,omitempty"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire listing,
// allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Container is the container related to this error, if applicable.
	Container string `json:"container,omitempty"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Prefix is the prefix being listed when the error occurred.
	Prefix string `json:"prefix,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeInvalidCredentials indicates the store rejected the credentials.
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// ErrCodeNotFound indicates the object was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeContainerNotFound indicates the container was not found.
	ErrCodeContainerNotFound = "CONTAINER_NOT_FOUND"

	// ErrCodeNetworkUnreachable indicates the endpoint could not be reached.
	ErrCodeNetworkUnreachable = "NETWORK_UNREACHABLE"

	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeProviderUnavailable indicates the store reported itself unavailable.
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"

	// ErrCodeInvalidInput indicates a request rejected before any store call.
	ErrCodeInvalidInput = "INVALID_INPUT"

	// ErrCodeTransferFailed indicates a transfer job failed.
	ErrCodeTransferFailed = "TRANSFER_FAILED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// CodeFor maps a provider error to an ErrorRecord code.
func CodeFor(err error) string {
	switch {
	case provider.IsContainerNotFound(err):
		return ErrCodeContainerNotFound
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsInvalidCredentials(err):
		return ErrCodeInvalidCredentials
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsNetworkUnreachable(err):
		return ErrCodeNetworkUnreachable
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return ErrCodeProviderUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}

// ProgressRecord is the data payload for transfer progress updates.
type ProgressRecord struct {
	// TransferID identifies the job.
	TransferID string `json:"transfer_id"`

	// Kind is the job kind ("upload", "download", "copy").
	Kind string `json:"kind"`

	// Name is the object or file being transferred.
	Name string `json:"name"`

	// Percent is the completion percentage (0-100, non-decreasing).
	Percent float64 `json:"percent"`

	// BytesDone is the number of bytes moved so far.
	BytesDone int64 `json:"bytes_done"`

	// BytesTotal is the expected size, or -1 when unknown.
	BytesTotal int64 `json:"bytes_total"`

	// BytesPerSecond is the latest throughput sample; zero means no reading.
	BytesPerSecond float64 `json:"bytes_per_second,omitempty"`

	// Message is the rendered progress text.
	Message string `json:"message,omitempty"`
}

// TransferRecord is the data payload for a settled transfer job.
type TransferRecord struct {
	TransferID string `json:"transfer_id"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Bytes      int64  `json:"bytes"`
	Succeeded  bool   `json:"succeeded"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`

	// Duration is the job's in-flight time.
	Duration time.Duration `json:"duration_ns"`

	// Message is the rendered completion text.
	Message string `json:"message,omitempty"`
}

// SummaryRecord is the data payload for batch summaries.
type SummaryRecord struct {
	// Operation names the batch ("delete", "download", "upload", "copy").
	Operation string `json:"operation"`

	// Total is the number of jobs in the batch.
	Total int `json:"total"`

	// Succeeded is the number of jobs that succeeded.
	Succeeded int `json:"succeeded"`

	// Failed is the number of jobs that failed.
	Failed int `json:"failed"`

	// BytesTotal is the cumulative size moved in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total batch duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// LinkRecord is the data payload for a temporary link.
type LinkRecord struct {
	Container string    `json:"container"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
