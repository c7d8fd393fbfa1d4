package provider

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name:     "with key",
			err:      &ProviderError{Op: "Head", Provider: ProviderAzure, Container: "media", Key: "mydir1/file.mp3", Err: ErrNotFound},
			expected: "azure Head: media/mydir1/file.mp3: object not found",
		},
		{
			name:     "without key",
			err:      &ProviderError{Op: "List", Provider: ProviderS3, Container: "media", Err: ErrAccessDenied},
			expected: "s3 List: media: access denied",
		},
		{
			name:     "without container",
			err:      &ProviderError{Op: "ListContainers", Provider: ProviderMinio, Err: errors.New("boom")},
			expected: "minio ListContainers: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSentinelHelpers(t *testing.T) {
	wrap := func(e error) error { return &ProviderError{Op: "X", Provider: ProviderFile, Err: e} }

	assert.True(t, IsNotFound(wrap(ErrNotFound)))
	assert.True(t, IsContainerNotFound(wrap(ErrContainerNotFound)))
	assert.True(t, IsAlreadyExists(wrap(ErrAlreadyExists)))
	assert.True(t, IsNetworkUnreachable(wrap(ErrNetworkUnreachable)))
	assert.True(t, IsThrottled(wrap(ErrThrottled)))
	assert.True(t, IsUnsupported(wrap(ErrUnsupported)))
	assert.True(t, IsProviderUnavailable(wrap(ErrProviderUnavailable)))

	assert.True(t, IsAuthRejected(wrap(ErrInvalidCredentials)))
	assert.True(t, IsAuthRejected(wrap(ErrAccessDenied)))
	assert.False(t, IsAuthRejected(wrap(ErrNotFound)))
	assert.False(t, IsNotFound(errors.New("some error")))
}

func TestIsNetworkFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "acct.blob.core.windows.net", IsNotFound: true}, want: true},
		{name: "wrapped dns", err: fmt.Errorf("send: %w", &net.DNSError{Name: "x"}), want: true},
		{name: "refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "dial op", err: &net.OpError{Op: "dial", Err: errors.New("i/o timeout")}, want: true},
		{name: "read op", err: &net.OpError{Op: "read", Err: errors.New("reset")}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkFailure(tt.err))
		})
	}
}

func TestGuidance(t *testing.T) {
	netErr := &ProviderError{Op: "List", Provider: ProviderAzure, Err: fmt.Errorf("%w: %w", ErrNetworkUnreachable, &net.DNSError{Name: "acct.blob.core.windows.net"})}
	assert.Contains(t, Guidance(netErr), "Connection to acct.blob.core.windows.net failed")

	assert.Contains(t, Guidance(&ProviderError{Err: ErrNetworkUnreachable}), "Connection to the storage endpoint failed")
	assert.Contains(t, Guidance(&ProviderError{Err: ErrInvalidCredentials}), "rejected the account key")
	assert.Empty(t, Guidance(nil))
	assert.Empty(t, Guidance(errors.New("other")))
}

func TestParseProviderType(t *testing.T) {
	for _, s := range []string{"s3", "azure", "minio", "file"} {
		pt, ok := ParseProviderType(s)
		assert.True(t, ok, s)
		assert.Equal(t, s, pt.String())
	}
	_, ok := ParseProviderType("gcs")
	assert.False(t, ok)
}

func TestEffectiveDelimiter(t *testing.T) {
	assert.Equal(t, "/", ListWithDelimiterOptions{}.EffectiveDelimiter())
	assert.Equal(t, "|", ListWithDelimiterOptions{Delimiter: "|"}.EffectiveDelimiter())
}
