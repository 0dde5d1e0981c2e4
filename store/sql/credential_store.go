package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-authclient/core"
)

const DefaultSlotKey = "default"

// CredentialSlotStore is the SQL-backed credential slot. Every write appends
// a new version inside a transaction, so a Get issued after a committed Set
// always observes that Set.
type CredentialSlotStore struct {
	db      *bun.DB
	repo    repository.Repository[*credentialSlotRecord]
	slotKey string
}

func (s *CredentialSlotStore) Get(ctx context.Context) (core.CredentialPair, bool, error) {
	if s == nil || s.repo == nil {
		return core.CredentialPair{}, false, fmt.Errorf("sqlstore: credential slot store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("slot_key", "=", s.slotKey),
		repository.SelectBy("status", "=", slotStatusActive),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialPair{}, false, err
	}
	if len(records) == 0 {
		return core.CredentialPair{}, false, nil
	}
	return records[0].toPair(), true, nil
}

func (s *CredentialSlotStore) Set(ctx context.Context, pair core.CredentialPair) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential slot store is not configured")
	}
	if err := pair.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx)
		if versionErr != nil {
			return versionErr
		}

		_, updateErr := tx.NewUpdate().
			Model((*credentialSlotRecord)(nil)).
			Set("status = ?", slotStatusSuperseded).
			Set("revocation_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("slot_key = ?", s.slotKey).
			Where("status = ?", slotStatusActive).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}

		record := newCredentialSlotRecord(s.slotKey, pair, nextVersion, now)
		_, createErr := s.repo.CreateTx(ctx, tx, record)
		return createErr
	})
}

func (s *CredentialSlotStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential slot store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*credentialSlotRecord)(nil)).
		Set("status = ?", slotStatusSuperseded).
		Set("revocation_reason = ?", "cleared").
		Set("updated_at = ?", time.Now().UTC()).
		Where("slot_key = ?", s.slotKey).
		Where("status = ?", slotStatusActive).
		Exec(ctx)
	return err
}

func (s *CredentialSlotStore) nextVersion(ctx context.Context, tx bun.Tx) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*credentialSlotRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.slot_key = ?", s.slotKey).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func newCredentialSlotRecord(slotKey string, pair core.CredentialPair, version int, now time.Time) *credentialSlotRecord {
	record := &credentialSlotRecord{
		ID:                uuid.NewString(),
		SlotKey:           slotKey,
		Version:           version,
		AccessCredential:  strings.TrimSpace(pair.AccessCredential),
		RefreshCredential: strings.TrimSpace(pair.RefreshCredential),
		Status:            slotStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if pair.ExpiresAt != nil {
		expiresAt := pair.ExpiresAt.UTC()
		record.ExpiresAt = &expiresAt
	}
	return record
}

func (r *credentialSlotRecord) toPair() core.CredentialPair {
	if r == nil {
		return core.CredentialPair{}
	}
	pair := core.CredentialPair{
		AccessCredential:  strings.TrimSpace(r.AccessCredential),
		RefreshCredential: strings.TrimSpace(r.RefreshCredential),
	}
	if r.ExpiresAt != nil {
		expiresAt := r.ExpiresAt.UTC()
		pair.ExpiresAt = &expiresAt
	}
	return pair
}
