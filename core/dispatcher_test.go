package core

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestSend_AttachesBearerAndCorrelationHeaders(t *testing.T) {
	transport := &fakeTransportAdapter{}
	renewal := &scriptedRenewalClient{}
	client := newTestClient(t, transport, renewal)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := client.Send(context.Background(), RequestSpec{Method: "get", Path: "/v1/widgets"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if strings.TrimSpace(res.CorrelationID) == "" {
		t.Fatalf("expected a correlation id on the response")
	}

	sent := transport.request(0)
	if sent.Method != http.MethodGet {
		t.Fatalf("expected GET, got %q", sent.Method)
	}
	if sent.URL != "https://api.example.test/v1/widgets" {
		t.Fatalf("unexpected url %q", sent.URL)
	}
	if got := sent.Headers["Authorization"]; got != "Bearer access-1" {
		t.Fatalf("unexpected authorization header %q", got)
	}
	if got := sent.Headers[correlationHeader]; got != res.CorrelationID {
		t.Fatalf("correlation header %q does not match response id %q", got, res.CorrelationID)
	}
	if got := sent.Headers["User-Agent"]; got != "go-authclient" {
		t.Fatalf("unexpected user agent %q", got)
	}
}

func TestSend_ClassifiesFailureStatuses(t *testing.T) {
	cases := []struct {
		name     string
		response TransportResponse
		textCode string
	}{
		{
			name:     "not found",
			response: TransportResponse{StatusCode: http.StatusNotFound},
			textCode: ClientErrorNotFound,
		},
		{
			name:     "validation",
			response: TransportResponse{StatusCode: http.StatusUnprocessableEntity},
			textCode: ClientErrorBadRequest,
		},
		{
			name:     "rate limited",
			response: TransportResponse{StatusCode: http.StatusTooManyRequests},
			textCode: ClientErrorRateLimited,
		},
		{
			name:     "server error",
			response: TransportResponse{StatusCode: http.StatusBadGateway},
			textCode: ClientErrorServerError,
		},
		{
			name:     "forbidden",
			response: TransportResponse{StatusCode: http.StatusForbidden},
			textCode: ClientErrorForbidden,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &fakeTransportAdapter{
				fn: func(int, TransportRequest) (TransportResponse, error) {
					return tc.response, nil
				},
			}
			renewal := &scriptedRenewalClient{}
			client := newTestClient(t, transport, renewal)
			if err := client.Login(context.Background(), seedPair()); err != nil {
				t.Fatalf("login: %v", err)
			}

			res, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
			if err == nil {
				t.Fatalf("expected classification error")
			}
			if !hasTextCode(err, tc.textCode) {
				t.Fatalf("expected text code %s, got %v", tc.textCode, err)
			}
			if res.StatusCode != tc.response.StatusCode {
				t.Fatalf("expected response status %d alongside the error, got %d", tc.response.StatusCode, res.StatusCode)
			}
			if got := renewal.callCount(); got != 0 {
				t.Fatalf("no renewal expected, got %d calls", got)
			}
		})
	}
}

func TestSend_PlainUnauthorizedDoesNotTriggerRenewal(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(int, TransportRequest) (TransportResponse, error) {
			return TransportResponse{StatusCode: http.StatusUnauthorized}, nil
		},
	}
	renewal := &scriptedRenewalClient{}
	client := newTestClient(t, transport, renewal)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
	if !hasTextCode(err, ClientErrorUnauthorized) {
		t.Fatalf("expected unauthorized classification, got %v", err)
	}
	if got := renewal.callCount(); got != 0 {
		t.Fatalf("plain 401 must not renew, got %d calls", got)
	}
	if got := transport.callCount(); got != 1 {
		t.Fatalf("expected a single transport call, got %d", got)
	}
}

func TestSend_ExpiredCredentialRenewsAndReplays(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(call int, req TransportRequest) (TransportResponse, error) {
			if req.Headers["Authorization"] == "Bearer access-renewed" {
				return TransportResponse{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
			}
			return expiredCredentialTransportResponse(), nil
		},
	}
	renewal := &scriptedRenewalClient{}
	client := newTestClient(t, transport, renewal)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected replayed 200, got %d", res.StatusCode)
	}
	if got := renewal.callCount(); got != 1 {
		t.Fatalf("expected one renewal, got %d", got)
	}
	if got := transport.callCount(); got != 2 {
		t.Fatalf("expected original call plus one replay, got %d", got)
	}
	if renewal.seen[0] != "refresh-1" {
		t.Fatalf("expected renewal with stored refresh credential, got %q", renewal.seen[0])
	}
	// The replay recaptures credentials from the store.
	if got := transport.request(1).Headers["Authorization"]; got != "Bearer access-renewed" {
		t.Fatalf("replay used stale credentials: %q", got)
	}
	if transport.request(0).Headers[correlationHeader] != transport.request(1).Headers[correlationHeader] {
		t.Fatalf("replay must keep the original correlation id")
	}
}

func TestSend_SecondExpiryAfterReplayIsTerminal(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(int, TransportRequest) (TransportResponse, error) {
			return expiredCredentialTransportResponse(), nil
		},
	}
	renewal := &scriptedRenewalClient{}
	client := newTestClient(t, transport, renewal)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
	if !IsCredentialExpired(err) {
		t.Fatalf("expected terminal credential expired error, got %v", err)
	}
	if got := renewal.callCount(); got != 1 {
		t.Fatalf("replay depth bound allows one renewal per call, got %d", got)
	}
	if got := transport.callCount(); got != 2 {
		t.Fatalf("expected two transport attempts, got %d", got)
	}
}

func TestSend_ConcurrentExpiriesShareOneRenewal(t *testing.T) {
	var mu sync.Mutex
	expiredServed := 0
	transport := &fakeTransportAdapter{
		fn: func(call int, req TransportRequest) (TransportResponse, error) {
			if req.Headers["Authorization"] == "Bearer access-renewed" {
				return TransportResponse{StatusCode: http.StatusOK}, nil
			}
			mu.Lock()
			expiredServed++
			mu.Unlock()
			return expiredCredentialTransportResponse(), nil
		},
	}
	renewal := &scriptedRenewalClient{perCall: 50 * time.Millisecond}
	client := newTestClient(t, transport, renewal)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	statuses := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			res, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
			errs[slot] = err
			statuses[slot] = res.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if statuses[i] != http.StatusOK {
			t.Fatalf("caller %d: expected 200, got %d", i, statuses[i])
		}
	}
	if got := renewal.callCount(); got != 1 {
		t.Fatalf("expected exactly one renewal across concurrent callers, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if expiredServed != callers {
		t.Fatalf("expected %d expired responses before renewal, got %d", callers, expiredServed)
	}
}

func TestSend_LogsSanitizedRequestAndResponseBodies(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(int, TransportRequest) (TransportResponse, error) {
			return TransportResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`{"id":"w1","access_token":"response-secret","profile":{"refresh_token":"nested-secret"}}`),
			}, nil
		},
	}
	renewal := &scriptedRenewalClient{}
	logger := newCaptureLogger()
	client := newTestClient(t, transport, renewal,
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err := client.Login(context.Background(), seedPair()); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := client.Send(context.Background(), RequestSpec{
		Method: "post",
		Path:   "/v1/widgets",
		Body:   []byte(`{"name":"w","password":"request-secret","api_token":"tok-1"}`),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	logs := logger.snapshot()
	requestBody := loggedBodyField(t, logs, "body")
	if requestBody["name"] != "w" {
		t.Fatalf("benign request fields must survive, got %v", requestBody)
	}
	if requestBody["password"] != RedactedValue || requestBody["api_token"] != RedactedValue {
		t.Fatalf("credential-bearing request fields must be redacted, got %v", requestBody)
	}

	responseBody := loggedBodyField(t, logs, "response_body")
	if responseBody["id"] != "w1" {
		t.Fatalf("benign response fields must survive, got %v", responseBody)
	}
	if responseBody["access_token"] != RedactedValue {
		t.Fatalf("response credentials must be redacted, got %v", responseBody)
	}
	nested, ok := responseBody["profile"].(map[string]any)
	if !ok || nested["refresh_token"] != RedactedValue {
		t.Fatalf("nested response credentials must be redacted, got %v", responseBody["profile"])
	}

	assertNeverLogged(t, logs, "request-secret", "tok-1", "response-secret", "nested-secret", "access-1")
}

func TestSend_AuthEndpointBodiesFullyRedacted(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(int, TransportRequest) (TransportResponse, error) {
			return TransportResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`{"access_token":"access-2","issued":"now"}`),
			}, nil
		},
	}
	renewal := &scriptedRenewalClient{}
	logger := newCaptureLogger()
	client, err := NewClient(Config{
		ClientName: "authclient-test",
		BaseURL:    "https://api.example.test",
		TokenURL:   "https://api.example.test/oauth/token",
	},
		WithTransportAdapter(transport),
		WithRenewalClient(renewal),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Send(context.Background(), RequestSpec{
		Method: "post",
		Path:   "/oauth/token",
		Body:   []byte(`{"grant_type":"refresh_token","refresh_token":"refresh-1","issued":"now"}`),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	logs := logger.snapshot()
	if got := loggedField(t, logs, "body"); got != RedactedValue {
		t.Fatalf("credential endpoint request body must be redacted whole, got %v", got)
	}
	if got := loggedField(t, logs, "response_body"); got != RedactedValue {
		t.Fatalf("credential endpoint response body must be redacted whole, got %v", got)
	}
	// "issued" is not a sensitive key; only whole-body redaction hides it.
	assertNeverLogged(t, logs, "refresh-1", "access-2", "now")
}

func loggedField(t *testing.T, logs []capturedLog, key string) any {
	t.Helper()
	for _, entry := range logs {
		if value, ok := entry.fields[key]; ok {
			return value
		}
	}
	t.Fatalf("no log entry carries field %q", key)
	return nil
}

func loggedBodyField(t *testing.T, logs []capturedLog, key string) map[string]any {
	t.Helper()
	value := loggedField(t, logs, key)
	body, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected %q to be a sanitized map, got %T", key, value)
	}
	return body
}

func assertNeverLogged(t *testing.T, logs []capturedLog, secrets ...string) {
	t.Helper()
	for _, entry := range logs {
		for key, value := range entry.fields {
			for _, secret := range secrets {
				if loggedValueContains(value, secret) {
					t.Fatalf("secret %q leaked into %q of log %q", secret, key, entry.msg)
				}
			}
		}
	}
}

func loggedValueContains(value any, secret string) bool {
	switch typed := value.(type) {
	case string:
		return strings.Contains(typed, secret)
	case map[string]any:
		for _, nested := range typed {
			if loggedValueContains(nested, secret) {
				return true
			}
		}
	case map[string]string:
		for _, nested := range typed {
			if strings.Contains(nested, secret) {
				return true
			}
		}
	case []any:
		for _, nested := range typed {
			if loggedValueContains(nested, secret) {
				return true
			}
		}
	}
	return false
}

func TestSend_TransportErrorWrapsAsTransportFailure(t *testing.T) {
	transport := &fakeTransportAdapter{
		fn: func(int, TransportRequest) (TransportResponse, error) {
			return TransportResponse{}, goerrors.New("connection refused", goerrors.CategoryExternal)
		},
	}
	renewal := &scriptedRenewalClient{}
	client := newTestClient(t, transport, renewal)

	_, err := client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
	if !IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestSend_RelativePathWithoutBaseURLFails(t *testing.T) {
	transport := &fakeTransportAdapter{}
	renewal := &scriptedRenewalClient{}
	client, err := NewClient(Config{ClientName: "authclient-test"},
		WithTransportAdapter(transport),
		WithRenewalClient(renewal),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Send(context.Background(), RequestSpec{Path: "/v1/widgets"})
	if !hasTextCode(err, ClientErrorInternal) {
		t.Fatalf("expected internal misconfiguration error, got %v", err)
	}
	if got := transport.callCount(); got != 0 {
		t.Fatalf("transport must not be called, got %d", got)
	}
}
