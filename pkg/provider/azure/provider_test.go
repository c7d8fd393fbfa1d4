package azure

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/provider"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "nothing configured", config: Config{}, wantErr: "one of connection string"},
		{name: "connection string", config: Config{ConnectionString: "UseDevelopmentStorage=true"}},
		{name: "shared key", config: Config{AccountName: "acct", AccountKey: "a2V5"}},
		{name: "name without key", config: Config{AccountName: "acct"}, wantErr: "account key is required"},
		{name: "key without name", config: Config{AccountKey: "a2V5"}, wantErr: "account name is required"},
		{name: "sas url", config: Config{SASURL: "https://acct.blob.core.windows.net/?sv=2020&sig=x"}},
		{name: "relative sas url", config: Config{SASURL: "acct.blob.core.windows.net"}, wantErr: "SAS URL must be an absolute URL"},
		{name: "bad endpoint", config: Config{AccountName: "acct", AccountKey: "a2V5", Endpoint: "localhost"}, wantErr: "endpoint must be an absolute URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ServiceURL(t *testing.T) {
	assert.Equal(t, "https://acct.blob.core.windows.net/", (&Config{AccountName: "acct"}).ServiceURL())
	assert.Equal(t, "https://acct.blob.core.chinacloudapi.cn/", (&Config{AccountName: "acct", DNSSuffix: ".core.chinacloudapi.cn"}).ServiceURL())
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1/", (&Config{AccountName: "devstoreaccount1", Endpoint: "http://127.0.0.1:10000/devstoreaccount1"}).ServiceURL())
}

func TestNew_InvalidBase64Key(t *testing.T) {
	_, err := New(Config{AccountName: "acct", AccountKey: "not base64!!"}, nil)
	require.Error(t, err)
	assert.True(t, provider.IsInvalidCredentials(err))
	assert.Contains(t, err.Error(), "not a valid base64 string")
}

func TestNew_SharedKey(t *testing.T) {
	p, err := New(Config{AccountName: "acct", AccountKey: "a2V5a2V5a2V5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(DefaultMaxResults), p.maxResults)
	assert.Equal(t, DefaultCopyPollInterval, p.pollInterval)
	assert.NoError(t, p.Close())
}

func TestWrapError_Codes(t *testing.T) {
	p := &Provider{}

	tests := []struct {
		code     string
		status   int
		expected error
	}{
		{"BlobNotFound", 404, provider.ErrNotFound},
		{"ContainerNotFound", 404, provider.ErrContainerNotFound},
		{"ContainerAlreadyExists", 409, provider.ErrAlreadyExists},
		{"AuthenticationFailed", 403, provider.ErrInvalidCredentials},
		{"AuthorizationPermissionMismatch", 403, provider.ErrAccessDenied},
		{"ServerBusy", 503, provider.ErrThrottled},
		{"InternalError", 500, provider.ErrProviderUnavailable},
		{"SomethingElse", http.StatusForbidden, provider.ErrAccessDenied},
		{"SomethingElse", http.StatusTooManyRequests, provider.ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.code, tt.status), func(t *testing.T) {
			err := p.wrapError("Op", "media", "k", &azcore.ResponseError{ErrorCode: tt.code, StatusCode: tt.status})
			assert.True(t, errors.Is(err, tt.expected), "code %s", tt.code)

			var provErr *provider.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, provider.ProviderAzure, provErr.Provider)
			assert.Equal(t, "media", provErr.Container)
		})
	}
}

func TestWrapError_Network(t *testing.T) {
	p := &Provider{}
	err := p.wrapError("ListContainers", "", "", fmt.Errorf("send: %w", &net.DNSError{Name: "acct.blob.core.windows.net", IsNotFound: true}))
	assert.True(t, provider.IsNetworkUnreachable(err))
	assert.Contains(t, provider.Guidance(err), "acct.blob.core.windows.net")
}

func TestRootPrefix(t *testing.T) {
	assert.Nil(t, rootPrefix(""))
	assert.Nil(t, rootPrefix("/"))
	require.NotNil(t, rootPrefix("mydir1/"))
	assert.Equal(t, "mydir1/", *rootPrefix("mydir1/"))
}

func TestParseCopyProgress(t *testing.T) {
	copied, total, ok := parseCopyProgress("512/2048")
	require.True(t, ok)
	assert.Equal(t, int64(512), copied)
	assert.Equal(t, int64(2048), total)

	_, _, ok = parseCopyProgress("")
	assert.False(t, ok)
	_, _, ok = parseCopyProgress("x/2")
	assert.False(t, ok)
}

func TestPageSize(t *testing.T) {
	p := &Provider{maxResults: 1000}
	assert.Equal(t, int32(1000), *p.pageSize(0))
	assert.Equal(t, int32(10), *p.pageSize(10))
	assert.Equal(t, int32(1000), *p.pageSize(5000))
}
