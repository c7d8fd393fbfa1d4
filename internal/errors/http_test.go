package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

func TestClassify(t *testing.T) {
	wrap := func(err error) error {
		return &provider.ProviderError{Op: "List", Provider: provider.ProviderAzure, Container: "media", Err: err}
	}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", transfer.ValidateKey(""), http.StatusBadRequest, CodeBadRequest},
		{"not found", wrap(provider.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"container not found", wrap(provider.ErrContainerNotFound), http.StatusNotFound, CodeNotFound},
		{"bad key", wrap(provider.ErrInvalidCredentials), http.StatusUnauthorized, CodeUnauthorized},
		{"denied", wrap(provider.ErrAccessDenied), http.StatusForbidden, CodeForbidden},
		{"exists", wrap(provider.ErrAlreadyExists), http.StatusConflict, CodeConflict},
		{"throttled", wrap(provider.ErrThrottled), http.StatusTooManyRequests, CodeRateLimited},
		{"unsupported", wrap(provider.ErrUnsupported), http.StatusNotImplemented, CodeUnsupported},
		{"network", wrap(provider.ErrNetworkUnreachable), http.StatusBadGateway, CodeNetworkUnreachable},
		{"unavailable", wrap(provider.ErrProviderUnavailable), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRespondWithError_UsesGuidance(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/containers", nil)
	req = req.WithContext(WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	err := &provider.ProviderError{Op: "ListContainers", Provider: provider.ProviderAzure, Err: provider.ErrInvalidCredentials}
	RespondWithError(rec, req, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeUnauthorized, body.Error.Code)
	assert.Contains(t, body.Error.Message, "rejected the account key")
	assert.Equal(t, "req-1", body.Error.CorrelationID)
	assert.Equal(t, "/v1/containers", body.Error.Path)
	assert.Equal(t, "ListContainers", body.Error.Context["op"])
	assert.Equal(t, "azure", body.Error.Context["provider"])
	assert.Contains(t, body.Error.Context["cause"], "invalid")
}

func TestRespondWithError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, nil, fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.Equal(t, "boom", body.Error.Message)
	assert.Empty(t, body.Error.Context)
}

func TestWriteError_Details(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, nil, http.StatusBadRequest, CodeBadRequest, "missing key", map[string]any{"param": "key"})

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "missing key", body.Error.Message)
	assert.Equal(t, "key", body.Error.Details["param"])
	assert.Empty(t, body.Error.CorrelationID)
}
