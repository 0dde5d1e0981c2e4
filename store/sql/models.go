package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	slotStatusActive     = "active"
	slotStatusSuperseded = "superseded"
)

// credentialSlotRecord is one version of the credential slot. The slot is
// append-only: a set supersedes the active row and inserts the next version,
// so the active row for a slot key is always the newest committed pair.
type credentialSlotRecord struct {
	bun.BaseModel `bun:"table:client_credential_slots,alias:ccs"`

	ID                string     `bun:"id,pk"`
	SlotKey           string     `bun:"slot_key,notnull"`
	Version           int        `bun:"version,notnull"`
	AccessCredential  string     `bun:"access_credential,notnull"`
	RefreshCredential string     `bun:"refresh_credential,notnull"`
	ExpiresAt         *time.Time `bun:"expires_at,nullzero"`
	Status            string     `bun:"status,notnull"`
	RevocationReason  string     `bun:"revocation_reason"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
