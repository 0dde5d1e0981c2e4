package core

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorCredentialExpired = "CLIENT_CREDENTIAL_EXPIRED"
	ClientErrorRenewalRejected   = "CLIENT_RENEWAL_REJECTED"
	ClientErrorTransportFailure  = "CLIENT_TRANSPORT_FAILURE"
	ClientErrorBadRequest        = "CLIENT_BAD_REQUEST"
	ClientErrorUnauthorized      = "CLIENT_UNAUTHORIZED"
	ClientErrorForbidden         = "CLIENT_FORBIDDEN"
	ClientErrorNotFound          = "CLIENT_NOT_FOUND"
	ClientErrorConflict          = "CLIENT_CONFLICT"
	ClientErrorRateLimited       = "CLIENT_RATE_LIMITED"
	ClientErrorServerError       = "CLIENT_SERVER_ERROR"
	ClientErrorInternal          = "CLIENT_INTERNAL_ERROR"
)

func clientError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func clientWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return clientError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// NewTransportFailure wraps a connectivity-level error, including renewal
// timeouts, which are treated identically to transport failures.
func NewTransportFailure(source error, message string, metadata map[string]any) error {
	return clientWrapError(
		source,
		goerrors.CategoryExternal,
		message,
		http.StatusBadGateway,
		ClientErrorTransportFailure,
		metadata,
	)
}

// NewRenewalRejected marks the terminal outcome where the server declared
// the refresh credential invalid or expired.
func NewRenewalRejected(source error, message string, metadata map[string]any) error {
	return clientWrapError(
		source,
		goerrors.CategoryAuth,
		message,
		http.StatusUnauthorized,
		ClientErrorRenewalRejected,
		metadata,
	)
}

// ClassifyResponse maps a transport response to the client error taxonomy.
// Status codes below 400 classify as success and return nil.
func ClassifyResponse(res TransportResponse) error {
	if res.StatusCode < http.StatusBadRequest {
		return nil
	}

	metadata := map[string]any{"status_code": res.StatusCode}
	switch {
	case isExpiredCredentialResponse(res):
		return clientError(
			"core: access credential expired",
			goerrors.CategoryAuth,
			res.StatusCode,
			ClientErrorCredentialExpired,
			metadata,
		)
	case res.StatusCode == http.StatusBadRequest || res.StatusCode == http.StatusUnprocessableEntity:
		return clientError(
			"core: request rejected as invalid",
			goerrors.CategoryValidation,
			res.StatusCode,
			ClientErrorBadRequest,
			metadata,
		)
	case res.StatusCode == http.StatusUnauthorized:
		return clientError(
			"core: request is not authenticated",
			goerrors.CategoryAuth,
			res.StatusCode,
			ClientErrorUnauthorized,
			metadata,
		)
	case res.StatusCode == http.StatusForbidden:
		return clientError(
			"core: request is not authorized",
			goerrors.CategoryAuthz,
			res.StatusCode,
			ClientErrorForbidden,
			metadata,
		)
	case res.StatusCode == http.StatusNotFound:
		return clientError(
			"core: resource not found",
			goerrors.CategoryNotFound,
			res.StatusCode,
			ClientErrorNotFound,
			metadata,
		)
	case res.StatusCode == http.StatusConflict:
		return clientError(
			"core: resource conflict",
			goerrors.CategoryConflict,
			res.StatusCode,
			ClientErrorConflict,
			metadata,
		)
	case res.StatusCode == http.StatusTooManyRequests:
		return clientError(
			"core: request was rate limited",
			goerrors.CategoryRateLimit,
			res.StatusCode,
			ClientErrorRateLimited,
			metadata,
		)
	case res.StatusCode >= http.StatusInternalServerError:
		return clientError(
			"core: upstream server error",
			goerrors.CategoryExternal,
			res.StatusCode,
			ClientErrorServerError,
			metadata,
		)
	default:
		return clientError(
			"core: request failed",
			goerrors.CategoryOperation,
			res.StatusCode,
			ClientErrorBadRequest,
			metadata,
		)
	}
}

// isExpiredCredentialResponse applies strict classification: only a 401 with
// an explicit expired/invalid-token marker routes into the coordinator.
// Ambiguous 401s are ordinary authentication failures.
func isExpiredCredentialResponse(res TransportResponse) bool {
	if res.StatusCode != http.StatusUnauthorized {
		return false
	}
	if challenge := headerValue(res.Headers, "Www-Authenticate"); challenge != "" {
		if strings.Contains(strings.ToLower(challenge), "invalid_token") {
			return true
		}
	}
	if len(res.Body) == 0 {
		return false
	}
	payload := struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}{}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(firstNonEmpty(payload.Code, payload.Error))) {
	case "token_expired", "invalid_token", "credential_expired":
		return true
	default:
		return false
	}
}

func headerValue(headers map[string]string, name string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[name]; ok {
		return value
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func IsCredentialExpired(err error) bool {
	return hasTextCode(err, ClientErrorCredentialExpired)
}

func IsRenewalRejected(err error) bool {
	return hasTextCode(err, ClientErrorRenewalRejected)
}

func IsTransportFailure(err error) bool {
	return hasTextCode(err, ClientErrorTransportFailure)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
