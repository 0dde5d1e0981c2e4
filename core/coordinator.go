package core

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultRenewalTimeout = 30 * time.Second

// ReplayFunc re-executes the original request after a successful renewal. It
// must recapture the current credentials from the store on every invocation.
type ReplayFunc func(ctx context.Context) (Response, error)

type waiterResult struct {
	response Response
	err      error
}

type refreshWaiter struct {
	ctx    context.Context
	replay ReplayFunc
	done   chan waiterResult
}

func (w *refreshWaiter) settle(response Response, err error) {
	select {
	case w.done <- waiterResult{response: response, err: err}:
	default:
	}
}

// RefreshCoordinator serializes credential renewal. At most one renewal is in
// flight regardless of how many callers observe an expiry concurrently;
// everyone else parks in an ordered waiter queue. Replay initiation follows
// queue order because the drain walks the queue sequentially.
type RefreshCoordinator struct {
	store    CredentialStore
	renewal  RenewalClient
	notifier SessionNotifier
	logger   Logger
	metrics  MetricsRecorder
	timeout  time.Duration

	mu         sync.Mutex
	inProgress bool
	queue      []*refreshWaiter
}

type CoordinatorOption func(*RefreshCoordinator)

func WithCoordinatorNotifier(notifier SessionNotifier) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.notifier = notifier
	}
}

func WithCoordinatorLogger(logger Logger) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.logger = logger
	}
}

func WithCoordinatorMetrics(recorder MetricsRecorder) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.metrics = recorder
	}
}

func WithCoordinatorTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewRefreshCoordinator(store CredentialStore, renewal RenewalClient, opts ...CoordinatorOption) *RefreshCoordinator {
	coordinator := &RefreshCoordinator{
		store:   store,
		renewal: renewal,
		timeout: defaultRenewalTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(coordinator)
		}
	}
	return coordinator
}

// HandleExpiry joins the waiter queue for the current expiry event. The first
// caller to arrive while no renewal is in flight becomes the leader and runs
// the renewal; every caller, leader included, receives its outcome through
// its own settlement channel. A nil replay settles with an empty response on
// success, which is how manual renewal rides the same single-flight path.
func (c *RefreshCoordinator) HandleExpiry(ctx context.Context, replay ReplayFunc) (Response, error) {
	if c == nil || c.store == nil || c.renewal == nil {
		return Response{}, clientError(
			"core: refresh coordinator is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	waiter := &refreshWaiter{
		ctx:    ctx,
		replay: replay,
		done:   make(chan waiterResult, 1),
	}

	c.mu.Lock()
	c.queue = append(c.queue, waiter)
	leader := !c.inProgress
	if leader {
		c.inProgress = true
	}
	c.mu.Unlock()

	if leader {
		c.runRenewal(ctx)
	}

	// The drain settles every waiter through a buffered channel, so an
	// abandoned caller can leave early while its slot still drains.
	select {
	case result := <-waiter.done:
		return result.response, result.err
	default:
	}
	select {
	case result := <-waiter.done:
		return result.response, result.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Renew forces a renewal through the single-flight path without a request to
// replay.
func (c *RefreshCoordinator) Renew(ctx context.Context) error {
	_, err := c.HandleExpiry(ctx, nil)
	return err
}

// runRenewal executes exactly one renewal attempt and drains the queue. The
// renewal itself is detached from the leader's context; a caller abandoning
// its request must not abort a renewal other callers depend on.
func (c *RefreshCoordinator) runRenewal(ctx context.Context) {
	startedAt := time.Now()
	base := context.WithoutCancel(ctx)

	pair, found, err := c.store.Get(base)
	if err != nil {
		c.drainFailure(base, startedAt, clientWrapError(
			err,
			goerrors.CategoryInternal,
			"core: credential store read failed before renewal",
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		), false)
		return
	}
	if !found || strings.TrimSpace(pair.RefreshCredential) == "" {
		// Nothing to renew; fail fast without invoking the renewal client
		// and without ending a session that was never established.
		c.drainFailure(base, startedAt, clientError(
			"core: no stored credentials to renew",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			ClientErrorUnauthorized,
			nil,
		), false)
		return
	}

	renewCtx, cancel := context.WithTimeout(base, c.timeout)
	renewed, renewErr := c.renewal.Renew(renewCtx, pair.RefreshCredential)
	cancel()
	if renewErr == nil {
		renewErr = renewed.Validate()
		if renewErr != nil {
			renewErr = NewRenewalRejected(renewErr, "core: renewal returned an incomplete credential pair", nil)
		}
	}
	if renewErr == nil {
		if setErr := c.store.Set(base, renewed); setErr != nil {
			renewErr = clientWrapError(
				setErr,
				goerrors.CategoryInternal,
				"core: failed to persist renewed credentials",
				http.StatusInternalServerError,
				ClientErrorInternal,
				nil,
			)
		}
	}

	if renewErr != nil {
		if !IsRenewalRejected(renewErr) && !IsTransportFailure(renewErr) && !hasTextCode(renewErr, ClientErrorInternal) {
			renewErr = NewTransportFailure(renewErr, "core: credential renewal failed", nil)
		}
		c.drainFailure(base, startedAt, renewErr, true)
		return
	}

	c.drainSuccess(base, startedAt)
}

// drainSuccess replays each parked waiter in join order. The queue is taken
// and the in-flight flag dropped before any replay runs, so a replay that
// expires again re-enters HandleExpiry as the leader of a fresh renewal.
func (c *RefreshCoordinator) drainSuccess(ctx context.Context, startedAt time.Time) {
	waiters := c.takeQueue()
	observeOperation(ctx, c.logger, c.metrics, startedAt, "credential_renewal", nil, map[string]any{
		"queue_depth": len(waiters),
	})
	for _, waiter := range waiters {
		if waiterErr := waiter.ctx.Err(); waiterErr != nil {
			waiter.settle(Response{}, waiterErr)
			continue
		}
		if waiter.replay == nil {
			waiter.settle(Response{}, nil)
			continue
		}
		response, err := waiter.replay(waiter.ctx)
		waiter.settle(response, err)
	}
}

// drainFailure rejects every parked waiter with the renewal error. When the
// failure terminates an established session the store is cleared and exactly
// one session-ended event fires, no matter how many waiters were queued.
func (c *RefreshCoordinator) drainFailure(ctx context.Context, startedAt time.Time, failure error, endSession bool) {
	waiters := c.takeQueue()
	observeOperation(ctx, c.logger, c.metrics, startedAt, "credential_renewal", failure, map[string]any{
		"queue_depth": len(waiters),
	})
	if endSession {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			logError(ctx, c.logger, "credential store clear failed after renewal failure", map[string]any{
				"error": clearErr.Error(),
			})
		}
		if c.notifier != nil {
			reason := SessionEndReasonRenewalFailed
			if IsRenewalRejected(failure) {
				reason = SessionEndReasonRenewalRejected
			}
			c.notifier.SessionEnded(ctx, SessionEndEvent{
				Reason:     reason,
				Cause:      failure,
				OccurredAt: time.Now().UTC(),
			})
		}
	}
	for _, waiter := range waiters {
		waiter.settle(Response{}, failure)
	}
}

func (c *RefreshCoordinator) takeQueue() []*refreshWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := c.queue
	c.queue = nil
	c.inProgress = false
	return waiters
}
