package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
)

const defaultRenewalHTTPTimeout = 30 * time.Second

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPRenewalClientConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   HTTPDoer
	Now          func() time.Time
}

// HTTPRenewalClient exchanges a refresh credential for a fresh pair using the
// OAuth2 refresh_token grant. One attempt per call; retry policy belongs to
// the coordinator, not here.
type HTTPRenewalClient struct {
	config HTTPRenewalClientConfig
}

func NewHTTPRenewalClient(cfg HTTPRenewalClientConfig) *HTTPRenewalClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRenewalHTTPTimeout}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRenewalHTTPTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	return &HTTPRenewalClient{config: cfg}
}

type renewalResponsePayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *HTTPRenewalClient) Renew(ctx context.Context, refreshCredential string) (core.CredentialPair, error) {
	if c == nil || c.config.HTTPClient == nil {
		return core.CredentialPair{}, core.NewTransportFailure(nil, "auth: renewal client is not configured", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	refreshCredential = strings.TrimSpace(refreshCredential)
	if refreshCredential == "" {
		return core.CredentialPair{}, core.NewRenewalRejected(nil, "auth: refresh credential is required", nil)
	}
	if c.config.TokenURL == "" {
		return core.CredentialPair{}, core.NewTransportFailure(nil, "auth: token url is required", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshCredential)
	if c.config.ClientID != "" && c.config.ClientSecret == "" {
		form.Set("client_id", c.config.ClientID)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return core.CredentialPair{}, core.NewTransportFailure(err, "auth: build renewal request", nil)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.config.ClientID != "" && c.config.ClientSecret != "" {
		req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	}

	res, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return core.CredentialPair{}, core.NewTransportFailure(err, "auth: renewal request failed", map[string]any{
			"token_url": c.config.TokenURL,
		})
	}
	defer res.Body.Close()

	payload := renewalResponsePayload{}
	decodeErr := json.NewDecoder(res.Body).Decode(&payload)

	switch {
	case res.StatusCode >= http.StatusInternalServerError:
		return core.CredentialPair{}, core.NewTransportFailure(nil, "auth: renewal endpoint unavailable", map[string]any{
			"status_code": res.StatusCode,
		})
	case res.StatusCode >= http.StatusBadRequest:
		metadata := map[string]any{"status_code": res.StatusCode}
		if decodeErr == nil && strings.TrimSpace(payload.ErrorCode) != "" {
			metadata["error_code"] = strings.TrimSpace(payload.ErrorCode)
		}
		return core.CredentialPair{}, core.NewRenewalRejected(nil, "auth: renewal rejected by server", metadata)
	}

	if decodeErr != nil {
		return core.CredentialPair{}, core.NewTransportFailure(decodeErr, "auth: decode renewal response", nil)
	}
	access := strings.TrimSpace(payload.AccessToken)
	if access == "" {
		return core.CredentialPair{}, core.NewRenewalRejected(nil, "auth: renewal response is missing an access credential", nil)
	}

	// Servers that do not rotate refresh credentials omit the field; the
	// current one stays valid in that case.
	refresh := strings.TrimSpace(payload.RefreshToken)
	if refresh == "" {
		refresh = refreshCredential
	}

	pair := core.CredentialPair{
		AccessCredential:  access,
		RefreshCredential: refresh,
	}
	if payload.ExpiresIn > 0 {
		expiresAt := c.config.Now().Add(time.Duration(payload.ExpiresIn) * time.Second).UTC()
		pair.ExpiresAt = &expiresAt
	}
	return pair, nil
}

var _ core.RenewalClient = (*HTTPRenewalClient)(nil)
