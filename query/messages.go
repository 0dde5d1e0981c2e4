package query

const TypeCredentialState = "authclient.query.credential_state"

type CredentialStateMessage struct{}

func (CredentialStateMessage) Type() string { return TypeCredentialState }

func (CredentialStateMessage) Validate() error { return nil }
