package core

import (
	"strings"
	"time"
)

const DefaultCredentialExpiringSoonWindow = 5 * time.Minute

// CredentialTokenState captures lifecycle flags derived from the stored pair.
type CredentialTokenState struct {
	ExpiresAt      *time.Time
	HasAccess      bool
	HasRefresh     bool
	CanRenew       bool
	IsExpired      bool
	IsExpiringSoon bool
	HasStoredPair  bool
}

// ResolveCredentialTokenState evaluates expiry and renewability flags for a
// stored credential pair. A pair without an expiry timestamp is treated as
// live until the server says otherwise.
func ResolveCredentialTokenState(now time.Time, pair CredentialPair, expiringSoonWindow time.Duration) CredentialTokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultCredentialExpiringSoonWindow
	}

	state := CredentialTokenState{
		HasAccess:  strings.TrimSpace(pair.AccessCredential) != "",
		HasRefresh: strings.TrimSpace(pair.RefreshCredential) != "",
	}
	state.HasStoredPair = state.HasAccess || state.HasRefresh
	state.CanRenew = state.HasRefresh
	if pair.ExpiresAt == nil {
		return state
	}
	expiresAt := pair.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}
