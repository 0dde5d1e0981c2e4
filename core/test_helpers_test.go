package core

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

type scriptedRenewalClient struct {
	mu       sync.Mutex
	results  []renewalScriptEntry
	calls    int
	seen     []string
	gate     chan struct{}
	perCall  time.Duration
	fallback CredentialPair
}

type renewalScriptEntry struct {
	pair CredentialPair
	err  error
}

func (c *scriptedRenewalClient) Renew(ctx context.Context, refreshCredential string) (CredentialPair, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return CredentialPair{}, ctx.Err()
		}
	}
	if c.perCall > 0 {
		select {
		case <-time.After(c.perCall):
		case <-ctx.Done():
			return CredentialPair{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.calls
	c.calls++
	c.seen = append(c.seen, refreshCredential)
	if index < len(c.results) {
		entry := c.results[index]
		return entry.pair, entry.err
	}
	if c.fallback.IsZero() {
		return CredentialPair{
			AccessCredential:  "access-renewed",
			RefreshCredential: "refresh-renewed",
		}, nil
	}
	return c.fallback, nil
}

func (c *scriptedRenewalClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeTransportAdapter struct {
	mu    sync.Mutex
	calls []TransportRequest
	fn    func(call int, req TransportRequest) (TransportResponse, error)
}

func (a *fakeTransportAdapter) Kind() string { return "fake" }

func (a *fakeTransportAdapter) Do(ctx context.Context, req TransportRequest) (TransportResponse, error) {
	if err := ctx.Err(); err != nil {
		return TransportResponse{}, err
	}
	a.mu.Lock()
	call := len(a.calls)
	a.calls = append(a.calls, req)
	fn := a.fn
	a.mu.Unlock()
	if fn == nil {
		return TransportResponse{StatusCode: http.StatusOK}, nil
	}
	return fn(call, req)
}

func (a *fakeTransportAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeTransportAdapter) request(index int) TransportRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.calls) {
		return TransportRequest{}
	}
	return a.calls[index]
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

func expiredCredentialTransportResponse() TransportResponse {
	return TransportResponse{
		StatusCode: http.StatusUnauthorized,
		Headers: map[string]string{
			"Www-Authenticate": `Bearer error="invalid_token", error_description="token expired"`,
		},
		Body: []byte(`{"code":"token_expired"}`),
	}
}

func seedPair() CredentialPair {
	return CredentialPair{
		AccessCredential:  "access-1",
		RefreshCredential: "refresh-1",
	}
}

func seedStore(t *testing.T, store CredentialStore) {
	t.Helper()
	if err := store.Set(context.Background(), seedPair()); err != nil {
		t.Fatalf("seed credential store: %v", err)
	}
}

func newTestClient(t *testing.T, transport *fakeTransportAdapter, renewal RenewalClient, extra ...Option) *Client {
	t.Helper()
	options := append([]Option{
		WithTransportAdapter(transport),
		WithRenewalClient(renewal),
	}, extra...)
	client, err := NewClient(Config{
		ClientName: "authclient-test",
		BaseURL:    "https://api.example.test",
	}, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func waitForQueueDepth(t *testing.T, coordinator *RefreshCoordinator, depth int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		coordinator.mu.Lock()
		current := len(coordinator.queue)
		coordinator.mu.Unlock()
		if current >= depth {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue never reached depth %d", depth)
}
