package service

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sphereone/go-sdk/core"
)

// Config holds everything the SDK needs to reach the backend and the
// identity provider. Field defaults match the hosted SphereOne stack; env
// tags let host applications load the whole thing from the environment.
type Config struct {
	Environment core.Environment `env:"SPHEREONE_ENVIRONMENT" envDefault:"PRODUCTION"`
	LoginMode   core.LoginMode   `env:"SPHEREONE_LOGIN_MODE" envDefault:"REDIRECT"`

	APIURL     string `env:"SPHEREONE_API_URL" envDefault:"https://api-olgsdff53q-uc.a.run.app"`
	AuthDomain string `env:"SPHEREONE_AUTH_DOMAIN" envDefault:"https://auth.sphereone.xyz"`
	Audience   string `env:"SPHEREONE_AUDIENCE" envDefault:"https://auth.sphereone.xyz"`
	WalletURL  string `env:"SPHEREONE_WALLET_URL" envDefault:"https://wallet.sphereone.xyz"`
	PinCodeURL string `env:"SPHEREONE_PINCODE_URL" envDefault:"https://pin.sphereone.xyz"`

	APIKey      string `env:"SPHEREONE_API_KEY"`
	ClientID    string `env:"SPHEREONE_CLIENT_ID"`
	RedirectURL string `env:"SPHEREONE_REDIRECT_URL"`
	Scheme      string `env:"SPHEREONE_SCHEME" envDefault:"sphereone"`

	// PersistEmbeddedSession stores embedded-mode credentials locally like
	// redirect-mode ones. Off by default: the embedded surface is the
	// system of record for its own session.
	PersistEmbeddedSession bool `env:"SPHEREONE_PERSIST_EMBEDDED_SESSION"`
}

// Validate rejects configurations the SDK cannot operate with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("invalid configuration: API URL is required")
	}
	if !validHTTPURL(c.APIURL) {
		return fmt.Errorf("invalid configuration: API URL %q invalid", c.APIURL)
	}
	if c.APIKey == "" {
		return errors.New("invalid configuration: API key is required")
	}

	switch c.LoginMode {
	case core.LoginModeRedirect:
		if c.ClientID == "" {
			return errors.New("invalid configuration: client id is required in redirect mode")
		}
		if c.RedirectURL == "" {
			return errors.New("invalid configuration: redirect URL is required in redirect mode")
		}
		if !validHTTPURL(c.RedirectURL) {
			return fmt.Errorf("invalid configuration: redirect URL %q invalid", c.RedirectURL)
		}
		if c.Scheme == "" {
			return errors.New("invalid configuration: scheme is required in redirect mode")
		}
	case core.LoginModeEmbedded:
	default:
		return fmt.Errorf("invalid configuration: unknown login mode %q", c.LoginMode)
	}

	switch c.Environment {
	case core.EnvironmentProduction, core.EnvironmentSandbox:
	default:
		return fmt.Errorf("invalid configuration: unknown environment %q", c.Environment)
	}

	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
