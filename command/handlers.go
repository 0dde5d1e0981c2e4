package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-authclient/core"
)

// SessionService is the mutating surface of the client exposed over the
// command bus.
type SessionService interface {
	Login(ctx context.Context, pair core.CredentialPair) error
	Logout(ctx context.Context) error
	Renew(ctx context.Context) error
	Send(ctx context.Context, spec core.RequestSpec) (core.Response, error)
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	return c.service.Login(ctx, msg.Pair)
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	return c.service.Logout(ctx)
}

type RenewCommand struct {
	service SessionService
}

func NewRenewCommand(service SessionService) *RenewCommand {
	return &RenewCommand{service: service}
}

func (c *RenewCommand) Execute(ctx context.Context, msg RenewMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: renew service is required")
	}
	return c.service.Renew(ctx)
}

type SendRequestCommand struct {
	service SessionService
}

func NewSendRequestCommand(service SessionService) *SendRequestCommand {
	return &SendRequestCommand{service: service}
}

func (c *SendRequestCommand) Execute(ctx context.Context, msg SendRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: send service is required")
	}
	out, err := c.service.Send(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
