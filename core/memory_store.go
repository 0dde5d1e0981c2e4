package core

import (
	"context"
	"net/http"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryCredentialStore is the in-process credential slot. Reads observe the
// most recent committed write; partial pairs are rejected before the slot
// mutates.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	pair    CredentialPair
	present bool
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Get(ctx context.Context) (CredentialPair, bool, error) {
	if s == nil {
		return CredentialPair{}, false, clientError(
			"core: credential store is nil",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}
	if err := ctx.Err(); err != nil {
		return CredentialPair{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return CredentialPair{}, false, nil
	}
	return s.pair.normalized(), true, nil
}

func (s *MemoryCredentialStore) Set(ctx context.Context, pair CredentialPair) error {
	if s == nil {
		return clientError(
			"core: credential store is nil",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pair.Validate(); err != nil {
		return clientWrapError(
			err,
			goerrors.CategoryValidation,
			"core: invalid credential pair",
			http.StatusUnprocessableEntity,
			ClientErrorBadRequest,
			nil,
		)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair.normalized()
	s.present = true
	return nil
}

func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	if s == nil {
		return clientError(
			"core: credential store is nil",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			ClientErrorInternal,
			nil,
		)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = CredentialPair{}
	s.present = false
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// SessionSignal is a channel-backed SessionNotifier. Events are delivered
// best-effort; a full buffer drops the event rather than blocking the
// coordinator's drain.
type SessionSignal struct {
	events chan SessionEndEvent
}

func NewSessionSignal(buffer int) *SessionSignal {
	if buffer <= 0 {
		buffer = 1
	}
	return &SessionSignal{events: make(chan SessionEndEvent, buffer)}
}

func (s *SessionSignal) SessionEnded(ctx context.Context, event SessionEndEvent) {
	if s == nil || s.events == nil {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}

// Events exposes the receive side for session/navigation code.
func (s *SessionSignal) Events() <-chan SessionEndEvent {
	if s == nil {
		return nil
	}
	return s.events
}

var _ SessionNotifier = (*SessionSignal)(nil)
