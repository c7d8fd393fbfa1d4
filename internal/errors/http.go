// Package errors maps domain errors onto the HTTP error envelope.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// Error codes used in HTTP responses.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUnauthorized       = "AUTH_REJECTED"
	CodeForbidden          = "ACCESS_DENIED"
	CodeConflict           = "ALREADY_EXISTS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnsupported        = "UNSUPPORTED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeNetworkUnreachable = "NETWORK_UNREACHABLE"
)

// HTTPErrorResponse wraps the error envelope as {"error": {...}}. The
// request ID travels as the envelope's correlation ID.
type HTTPErrorResponse struct {
	Error *gferrors.ErrorEnvelope `json:"error"`
}

type requestIDKey struct{}

// WithRequestID stores a request ID for error responses.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Classify returns the HTTP status and error code for err.
func Classify(err error) (int, string) {
	var verr *transfer.ValidationError
	switch {
	case stderrors.As(err, &verr):
		return http.StatusBadRequest, CodeBadRequest
	case provider.IsNotFound(err), provider.IsContainerNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case provider.IsInvalidCredentials(err):
		return http.StatusUnauthorized, CodeUnauthorized
	case provider.IsAccessDenied(err):
		return http.StatusForbidden, CodeForbidden
	case provider.IsAlreadyExists(err):
		return http.StatusConflict, CodeConflict
	case provider.IsThrottled(err):
		return http.StatusTooManyRequests, CodeRateLimited
	case provider.IsUnsupported(err):
		return http.StatusNotImplemented, CodeUnsupported
	case provider.IsNetworkUnreachable(err):
		return http.StatusBadGateway, CodeNetworkUnreachable
	case provider.IsProviderUnavailable(err):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// NewEnvelope builds an error envelope for r, carrying its request ID and
// path. r may be nil.
func NewEnvelope(r *http.Request, code, message string) *gferrors.ErrorEnvelope {
	env := gferrors.NewErrorEnvelope(code, message)
	if r != nil {
		env = env.WithCorrelationID(RequestIDFrom(r.Context())).WithPath(r.URL.Path)
	}
	return env
}

// RespondWithError writes the envelope for err. Provider guidance text is
// used as the message when available, and the failing provider call is
// described in the envelope context.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	msg := err.Error()
	env := NewEnvelope(r, code, msg)

	ctx := map[string]interface{}{}
	if g := provider.Guidance(err); g != "" {
		env.Message = g
		ctx["cause"] = msg
	}
	var perr *provider.ProviderError
	if stderrors.As(err, &perr) {
		ctx["op"] = perr.Op
		if perr.Provider != "" {
			ctx["provider"] = string(perr.Provider)
		}
		if perr.Container != "" {
			ctx["container"] = perr.Container
		}
		if perr.Key != "" {
			ctx["key"] = perr.Key
		}
	}
	if len(ctx) > 0 {
		env = gferrors.SafeWithContext(env, ctx)
	}
	WriteEnvelope(w, status, env)
}

// WriteError writes an error envelope with the given status. details may
// hold any JSON value.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	env := NewEnvelope(r, code, message)
	if len(details) > 0 {
		env = env.WithDetails(details)
	}
	WriteEnvelope(w, status, env)
}

// WriteEnvelope writes env as the body of a status response.
func WriteEnvelope(w http.ResponseWriter, status int, env *gferrors.ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: env})
}
