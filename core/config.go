package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultRequestTimeout   = 30 * time.Second
	defaultMaxResponseBytes = int64(10 << 20)
)

type Config struct {
	ClientName         string        `koanf:"client_name" mapstructure:"client_name"`
	BaseURL            string        `koanf:"base_url" mapstructure:"base_url"`
	TokenURL           string        `koanf:"token_url" mapstructure:"token_url"`
	UserAgent          string        `koanf:"user_agent" mapstructure:"user_agent"`
	RequestTimeout     time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	RenewalTimeout     time.Duration `koanf:"renewal_timeout" mapstructure:"renewal_timeout"`
	ExpiringSoonWindow time.Duration `koanf:"expiring_soon_window" mapstructure:"expiring_soon_window"`
	MaxResponseBytes   int64         `koanf:"max_response_bytes" mapstructure:"max_response_bytes"`
}

func DefaultConfig() Config {
	return Config{
		ClientName:         "authclient",
		UserAgent:          "go-authclient",
		RequestTimeout:     defaultRequestTimeout,
		RenewalTimeout:     defaultRenewalTimeout,
		ExpiringSoonWindow: DefaultCredentialExpiringSoonWindow,
		MaxResponseBytes:   defaultMaxResponseBytes,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("core: client_name is required")
	}
	for _, endpoint := range []struct {
		name  string
		value string
	}{
		{name: "base_url", value: c.BaseURL},
		{name: "token_url", value: c.TokenURL},
	} {
		raw := strings.TrimSpace(endpoint.value)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: %s must be an absolute URL", endpoint.name)
		}
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("core: request_timeout must not be negative")
	}
	if c.RenewalTimeout < 0 {
		return fmt.Errorf("core: renewal_timeout must not be negative")
	}
	return nil
}
