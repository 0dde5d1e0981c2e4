package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore is the process-wide slot holding the current credential
// pair. Reads must be immediately consistent with the most recent write.
// The store is only mutated through login, renewal success, and clear; the
// dispatcher never touches it directly.
type CredentialStore interface {
	Get(ctx context.Context) (CredentialPair, bool, error)
	Set(ctx context.Context, pair CredentialPair) error
	Clear(ctx context.Context) error
}

// RenewalClient exchanges a refresh credential for a fresh pair. It performs
// no retries; one renewal attempt per expiry event is the coordinator's
// policy.
type RenewalClient interface {
	Renew(ctx context.Context, refreshCredential string) (CredentialPair, error)
}

// SessionNotifier receives the process-wide session-ended signal consumed by
// navigation/session code.
type SessionNotifier interface {
	SessionEnded(ctx context.Context, event SessionEndEvent)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	Idempotency          string
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
