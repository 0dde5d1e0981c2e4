package core

import (
	"context"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Client owns the credential slot, the renewal coordinator and the request
// dispatcher. It is safe for concurrent use.
type Client struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	credentialStore CredentialStore
	renewalClient   RenewalClient
	transport       TransportAdapter
	notifier        SessionNotifier
	coordinator     *RefreshCoordinator
}

func NewClient(cfg Config, options ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("authclient", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("authclient"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore()
	}
	if builder.renewalClient == nil {
		return nil, clientError(
			"core: renewal client is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}
	if builder.transport == nil {
		return nil, clientError(
			"core: transport adapter is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	coordinator := NewRefreshCoordinator(
		builder.credentialStore,
		builder.renewalClient,
		WithCoordinatorNotifier(builder.notifier),
		WithCoordinatorLogger(logger),
		WithCoordinatorMetrics(builder.metricsRecorder),
		WithCoordinatorTimeout(finalConfig.RenewalTimeout),
	)

	return &Client{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		credentialStore: builder.credentialStore,
		renewalClient:   builder.renewalClient,
		transport:       builder.transport,
		notifier:        builder.notifier,
		coordinator:     coordinator,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

// Login stores the credential pair obtained from an external sign-in flow.
func (c *Client) Login(ctx context.Context, pair CredentialPair) error {
	if c == nil {
		return clientNilError()
	}
	startedAt := time.Now()
	err := c.credentialStore.Set(ctx, pair)
	observeOperation(ctx, c.logger, c.metricsRecorder, startedAt, "login", err, map[string]any{
		"client_name": c.config.ClientName,
	})
	return err
}

// Logout clears the slot and emits a session-ended event with the logout
// reason. Logging out without a stored pair is a no-op that still succeeds.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return clientNilError()
	}
	startedAt := time.Now()
	_, found, err := c.credentialStore.Get(ctx)
	if err == nil {
		err = c.credentialStore.Clear(ctx)
	}
	if err == nil && found && c.notifier != nil {
		c.notifier.SessionEnded(ctx, SessionEndEvent{
			Reason:     SessionEndReasonLogout,
			OccurredAt: time.Now().UTC(),
		})
	}
	observeOperation(ctx, c.logger, c.metricsRecorder, startedAt, "logout", err, map[string]any{
		"client_name": c.config.ClientName,
		"had_session": found,
	})
	return err
}

// Renew forces a credential renewal through the single-flight coordinator.
func (c *Client) Renew(ctx context.Context) error {
	if c == nil {
		return clientNilError()
	}
	return c.coordinator.Renew(ctx)
}

// CredentialState reports lifecycle flags for the stored pair.
func (c *Client) CredentialState(ctx context.Context) (CredentialTokenState, error) {
	if c == nil {
		return CredentialTokenState{}, clientNilError()
	}
	pair, found, err := c.credentialStore.Get(ctx)
	if err != nil {
		return CredentialTokenState{}, err
	}
	if !found {
		return CredentialTokenState{}, nil
	}
	return ResolveCredentialTokenState(time.Now(), pair, c.config.ExpiringSoonWindow), nil
}

// SessionEvents exposes the notifier's channel when the client was built with
// a SessionSignal notifier.
func (c *Client) SessionEvents() <-chan SessionEndEvent {
	if c == nil {
		return nil
	}
	if signal, ok := c.notifier.(*SessionSignal); ok {
		return signal.Events()
	}
	return nil
}

func clientNilError() error {
	return clientError(
		"core: client is nil",
		goerrors.CategoryInternal,
		http.StatusInternalServerError,
		ClientErrorInternal,
		nil,
	)
}
