package authclient

import (
	"fmt"

	clientcommand "github.com/goliatone/go-authclient/command"
	clientquery "github.com/goliatone/go-authclient/query"
)

// CommandQueryService is the surface the facade exposes over the command bus.
// *core.Client satisfies it.
type CommandQueryService interface {
	clientcommand.SessionService
	clientquery.CredentialStateReader
}

type Commands struct {
	Login       *clientcommand.LoginCommand
	Logout      *clientcommand.LogoutCommand
	Renew       *clientcommand.RenewCommand
	SendRequest *clientcommand.SendRequestCommand
}

type Queries struct {
	CredentialState *clientquery.CredentialStateQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("authclient: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:       clientcommand.NewLoginCommand(service),
		Logout:      clientcommand.NewLogoutCommand(service),
		Renew:       clientcommand.NewRenewCommand(service),
		SendRequest: clientcommand.NewSendRequestCommand(service),
	}
	facade.queries = Queries{
		CredentialState: clientquery.NewCredentialStateQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Client)(nil)
