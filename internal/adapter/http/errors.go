package http

import (
	"errors"
	"log/slog"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/resqlink/early-warning-service/internal/domain"
)

type errorCode string

const (
	codeInternal         errorCode = "internal_server_error"
	codeBadRequest       errorCode = "bad_request"
	codeNotFound         errorCode = "not_found"
	codeUnauthorized     errorCode = "unauthorized"
	codeInvalidToken     errorCode = "invalid_token"
	codeMissingParameter errorCode = "missing_parameter"
	codeInvalidFormat    errorCode = "invalid_format"
	codeNotConfigured    errorCode = "not_configured"
	codeUpstream         errorCode = "upstream_error"
)

// apiError is the JSON body of every error response.
type apiError struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	status  int
}

func newAPIError(status int, code errorCode, message string) apiError {
	return apiError{Code: code, Message: message, status: status}
}

// toAPIError maps service errors to a status and error code.
func toAPIError(err error) apiError {
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidTile):
		return newAPIError(http.StatusBadRequest, codeInvalidFormat, err.Error())
	case errors.Is(err, domain.ErrLayerUnknown):
		return newAPIError(http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		return newAPIError(http.StatusServiceUnavailable, codeNotConfigured, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		return newAPIError(http.StatusBadGateway, codeUpstream, err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := toAPIError(err)
	if apiErr.status >= http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", apiErr.status, "error", err)
	}
	sharedobs.WriteJSON(w, apiErr.status, apiErr)
}

func writeAPIError(w http.ResponseWriter, apiErr apiError) {
	sharedobs.WriteJSON(w, apiErr.status, apiErr)
}
