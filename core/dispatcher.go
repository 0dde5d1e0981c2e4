package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// defaultMaxReplayDepth bounds renewal-triggered replays. Each originating
// call funds at most one renewal: attempt 1 may join the renewal queue and
// replay as attempt 2, and an expired response on the replay is returned to
// the caller as-is. A replay that expires again means the freshly renewed
// pair was immediately rejected, which another renewal will not cure, so the
// bound is on renewals per call rather than consecutive expiries.
const defaultMaxReplayDepth = 2

const correlationHeader = "X-Correlation-ID"

// Send dispatches one API call: bearer header and correlation id attached,
// sanitized request/response diagnostics logged, failures classified into the
// client error taxonomy. An expired-credential response hands the call to the
// refresh coordinator with a replay closure that recaptures the then-current
// credentials.
func (c *Client) Send(ctx context.Context, spec RequestSpec) (Response, error) {
	if c == nil {
		return Response{}, clientNilError()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.send(ctx, spec, uuid.NewString(), 1)
}

func (c *Client) send(ctx context.Context, spec RequestSpec, correlationID string, attempt int) (Response, error) {
	startedAt := time.Now()

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}
	targetURL, err := c.resolveURL(spec.Path)
	if err != nil {
		return Response{}, err
	}

	pair, _, err := c.credentialStore.Get(ctx)
	if err != nil {
		return Response{}, clientWrapError(
			err,
			goerrors.CategoryInternal,
			"core: credential store read failed",
			http.StatusInternalServerError,
			ClientErrorInternal,
			map[string]any{"correlation_id": correlationID},
		)
	}

	headers := copyStringMap(spec.Headers)
	headers[correlationHeader] = correlationID
	if access := strings.TrimSpace(pair.AccessCredential); access != "" {
		headers["Authorization"] = "Bearer " + access
	}
	if agent := strings.TrimSpace(c.config.UserAgent); agent != "" {
		if _, exists := headers["User-Agent"]; !exists {
			headers["User-Agent"] = agent
		}
	}

	authTarget := c.isAuthTarget(targetURL)
	fields := map[string]any{
		"client_name":    c.config.ClientName,
		"correlation_id": correlationID,
		"method":         method,
		"path":           strings.TrimSpace(spec.Path),
		"attempt":        attempt,
		"headers":        RedactHeaders(headers),
	}
	if body := SanitizeBodyForLog(spec.Body, authTarget); body != nil {
		fields["body"] = body
	}
	state := ResolveCredentialTokenState(time.Now(), pair, c.config.ExpiringSoonWindow)
	if state.IsExpiringSoon {
		fields["credential_expiring_soon"] = true
	}
	logInfo(ctx, c.logger, "dispatching request", fields)

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.config.RequestTimeout
	}
	transportRes, err := c.transport.Do(ctx, TransportRequest{
		Method:  method,
		URL:     targetURL,
		Headers: headers,
		Query:   copyStringMap(spec.Query),
		Body:    spec.Body,
		Timeout: timeout,
		Metadata: map[string]any{
			"correlation_id": correlationID,
		},
		MaxResponseBodyBytes: c.config.MaxResponseBytes,
	})
	if err != nil {
		if !IsTransportFailure(err) {
			err = NewTransportFailure(err, "core: request transport failed", map[string]any{
				"correlation_id": correlationID,
			})
		}
		observeOperation(ctx, c.logger, c.metricsRecorder, startedAt, "dispatch", err, fields)
		return Response{}, err
	}

	response := Response{
		StatusCode:    transportRes.StatusCode,
		Headers:       copyStringMap(transportRes.Headers),
		Body:          transportRes.Body,
		CorrelationID: correlationID,
		Metadata:      copyAnyMap(transportRes.Metadata),
	}

	classifyErr := ClassifyResponse(transportRes)
	if classifyErr != nil && IsCredentialExpired(classifyErr) && attempt < defaultMaxReplayDepth {
		logInfo(ctx, c.logger, "credential expired, joining renewal queue", map[string]any{
			"client_name":    c.config.ClientName,
			"correlation_id": correlationID,
			"attempt":        attempt,
			"status_code":    transportRes.StatusCode,
		})
		return c.coordinator.HandleExpiry(ctx, func(replayCtx context.Context) (Response, error) {
			return c.send(replayCtx, spec, correlationID, attempt+1)
		})
	}

	fields["status_code"] = transportRes.StatusCode
	if body := SanitizeBodyForLog(transportRes.Body, authTarget); body != nil {
		fields["response_body"] = body
	}
	observeOperation(ctx, c.logger, c.metricsRecorder, startedAt, "dispatch", classifyErr, fields)
	return response, classifyErr
}

// isAuthTarget reports whether the call is aimed at the credential endpoint,
// whose payloads carry raw credentials on both legs.
func (c *Client) isAuthTarget(targetURL string) bool {
	tokenURL := strings.TrimRight(strings.TrimSpace(c.config.TokenURL), "/")
	if tokenURL == "" {
		return false
	}
	return strings.EqualFold(strings.TrimRight(targetURL, "/"), tokenURL)
}

func (c *Client) resolveURL(path string) (string, error) {
	path = strings.TrimSpace(path)
	if parsed, err := url.Parse(path); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return path, nil
	}
	base := strings.TrimSpace(c.config.BaseURL)
	if base == "" {
		return "", clientError(
			"core: base_url is required for relative request paths",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			map[string]any{"path": path},
		)
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}
