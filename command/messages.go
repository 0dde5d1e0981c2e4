package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-authclient/core"
)

const (
	TypeLogin       = "authclient.command.login"
	TypeLogout      = "authclient.command.logout"
	TypeRenew       = "authclient.command.renew"
	TypeSendRequest = "authclient.command.request.send"
)

type LoginMessage struct {
	Pair core.CredentialPair
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if err := m.Pair.Validate(); err != nil {
		return commandWrapValidation(err, "command: login credentials are invalid")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RenewMessage struct{}

func (RenewMessage) Type() string { return TypeRenew }

func (RenewMessage) Validate() error { return nil }

type SendRequestMessage struct {
	Request core.RequestSpec
}

func (SendRequestMessage) Type() string { return TypeSendRequest }

func (m SendRequestMessage) Validate() error {
	if strings.TrimSpace(m.Request.Path) == "" {
		return fmt.Errorf("command: request path is required")
	}
	return nil
}
