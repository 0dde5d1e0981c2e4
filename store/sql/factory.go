package sqlstore

import (
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-authclient/core"
)

type SlotStoreOption func(*CredentialSlotStore)

func WithSlotKey(slotKey string) SlotStoreOption {
	return func(s *CredentialSlotStore) {
		if trimmed := strings.TrimSpace(slotKey); trimmed != "" {
			s.slotKey = trimmed
		}
	}
}

// NewCredentialSlotStore builds the SQL-backed slot store from either a
// *bun.DB or anything exposing DB() *bun.DB, such as a persistence-bun
// client.
func NewCredentialSlotStore(persistenceClient any, opts ...SlotStoreOption) (*CredentialSlotStore, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRepository[*credentialSlotRecord](db, credentialSlotHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if validateErr := validator.Validate(); validateErr != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential slot repository wiring: %w", validateErr)
		}
	}

	store := &CredentialSlotStore{
		db:      db,
		repo:    repo,
		slotKey: DefaultSlotKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func NewCredentialSlotStoreFromPersistence(client *persistence.Client, opts ...SlotStoreOption) (*CredentialSlotStore, error) {
	return NewCredentialSlotStore(client, opts...)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.CredentialStore = (*CredentialSlotStore)(nil)
