package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-authclient/core"
)

var _ gocmd.Querier[CredentialStateMessage, core.CredentialTokenState] = (*CredentialStateQuery)(nil)
