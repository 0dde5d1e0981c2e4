package core

import (
	"fmt"
	"strings"
	"time"
)

// CredentialPair is the access/refresh credential set owned by the
// credential store. Either both credentials are present or the pair is
// absent entirely; partial pairs never enter the store.
type CredentialPair struct {
	AccessCredential  string
	RefreshCredential string
	ExpiresAt         *time.Time
}

func (p CredentialPair) IsZero() bool {
	return strings.TrimSpace(p.AccessCredential) == "" &&
		strings.TrimSpace(p.RefreshCredential) == ""
}

func (p CredentialPair) Validate() error {
	access := strings.TrimSpace(p.AccessCredential)
	refresh := strings.TrimSpace(p.RefreshCredential)
	if access == "" && refresh == "" {
		return fmt.Errorf("core: credential pair is empty")
	}
	if access == "" || refresh == "" {
		return fmt.Errorf("core: credential pair requires both access and refresh credentials")
	}
	return nil
}

func (p CredentialPair) normalized() CredentialPair {
	return CredentialPair{
		AccessCredential:  strings.TrimSpace(p.AccessCredential),
		RefreshCredential: strings.TrimSpace(p.RefreshCredential),
		ExpiresAt:         cloneTimePointer(p.ExpiresAt),
	}
}

// RequestSpec describes one outgoing API call. Path is resolved against the
// configured base URL unless it is already absolute.
type RequestSpec struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type Response struct {
	StatusCode    int
	Headers       map[string]string
	Body          []byte
	CorrelationID string
	Metadata      map[string]any
}

type SessionEndReason string

const (
	SessionEndReasonRenewalRejected SessionEndReason = "renewal_rejected"
	SessionEndReasonRenewalFailed   SessionEndReason = "renewal_failed"
	SessionEndReasonLogout          SessionEndReason = "logout"
)

// SessionEndEvent is emitted exactly once per failed renewal drain or
// explicit logout, independent of how many callers were queued.
type SessionEndEvent struct {
	Reason     SessionEndReason
	Cause      error
	OccurredAt time.Time
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
