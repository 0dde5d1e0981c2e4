package authclient

import "github.com/goliatone/go-authclient/core"

type Config = core.Config

type Option = core.Option

type Client = core.Client

type CredentialPair = core.CredentialPair

type CredentialStore = core.CredentialStore
type RenewalClient = core.RenewalClient
type SessionNotifier = core.SessionNotifier
type TransportAdapter = core.TransportAdapter
type MetricsRecorder = core.MetricsRecorder

type RequestSpec = core.RequestSpec
type Response = core.Response

type CredentialTokenState = core.CredentialTokenState
type SessionEndEvent = core.SessionEndEvent
type SessionEndReason = core.SessionEndReason

type RefreshCoordinator = core.RefreshCoordinator

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithCredentialStore  = core.WithCredentialStore
	WithRenewalClient    = core.WithRenewalClient
	WithTransportAdapter = core.WithTransportAdapter
	WithSessionNotifier  = core.WithSessionNotifier
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	return core.NewClient(cfg, opts...)
}
