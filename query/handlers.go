package query

import (
	"context"

	"github.com/goliatone/go-authclient/core"
)

type CredentialStateReader interface {
	CredentialState(ctx context.Context) (core.CredentialTokenState, error)
}

type CredentialStateQuery struct {
	reader CredentialStateReader
}

func NewCredentialStateQuery(reader CredentialStateReader) *CredentialStateQuery {
	return &CredentialStateQuery{reader: reader}
}

func (q *CredentialStateQuery) Query(ctx context.Context, msg CredentialStateMessage) (core.CredentialTokenState, error) {
	if q == nil || q.reader == nil {
		return core.CredentialTokenState{}, queryDependencyError("query: credential state reader is required")
	}
	return q.reader.CredentialState(ctx)
}
