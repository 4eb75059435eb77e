// Package sphereone is the client SDK for the SphereOne pay-with-crypto
// platform. A Manager ties together authentication, profile sync, and
// payment orchestration over injected storage, transport, browser, and
// event-publishing capabilities.
package sphereone

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sphereone/go-sdk/adapters/browser"
	"github.com/sphereone/go-sdk/adapters/events"
	"github.com/sphereone/go-sdk/adapters/store"
	"github.com/sphereone/go-sdk/adapters/transport"
	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
	"github.com/sphereone/go-sdk/service"
)

// Re-exported so host applications configure the SDK without importing
// internal packages.
type Config = service.Config

// ChargeOptions tune charge creation.
type ChargeOptions = service.ChargeOptions

var (
	instanceMu   sync.Mutex
	instanceLive bool
)

// Options inject alternative implementations of the SDK's capabilities.
// Every field is optional; zero values select the built-in defaults.
type Options struct {
	// Store persists credentials between runs. Defaults to an in-memory
	// store, which means sessions do not survive a restart.
	Store ports.Store

	// HTTPClient issues backend requests. Defaults to the built-in
	// retrying client.
	HTTPClient ports.HTTPClient

	// Browser drives interactive auth. Defaults to a loopback-listener
	// browser when the redirect URL points at localhost.
	Browser ports.AuthBrowser

	// Embedded is the wallet surface used in embedded login mode.
	Embedded ports.EmbeddedWallet

	// Events receives profile and session notifications. Defaults to a
	// discarding publisher.
	Events ports.EventPublisher

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Manager is the SDK entry point. Only one live Manager may exist per
// process; Close releases the slot.
type Manager struct {
	cfg *Config
	log logrus.FieldLogger

	Auth     *service.AuthService
	Profile  *service.ProfileService
	Payments *service.PaymentService

	closeOnce sync.Once
}

// New validates the configuration and wires up a Manager.
func New(cfg *Config, opts Options) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	instanceMu.Lock()
	if instanceLive {
		instanceMu.Unlock()
		return nil, core.ErrManagerExists
	}
	instanceLive = true
	instanceMu.Unlock()

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = transport.New(log)
	}

	kv := opts.Store
	if kv == nil {
		kv = store.NewMemoryStore()
	}

	publisher := opts.Events
	if publisher == nil {
		publisher = events.Discard{}
	}

	authBrowser := opts.Browser
	if authBrowser == nil && cfg.LoginMode == core.LoginModeRedirect {
		loopback, err := browser.NewLoopback(cfg.RedirectURL, log)
		if err != nil {
			release()
			return nil, fmt.Errorf("no browser configured and loopback unavailable: %w", err)
		}
		authBrowser = loopback
	}

	creds := service.NewCredentialStore(kv)
	auth := service.NewAuthService(cfg, httpClient, creds, authBrowser, opts.Embedded, publisher, log)
	profile := service.NewProfileService(cfg, httpClient, auth, publisher, log)
	payments := service.NewPaymentService(cfg, httpClient, auth, authBrowser, log)

	auth.SetHooks(
		func(ctx context.Context) { profile.FetchAll(ctx) },
		func(ctx context.Context) {
			profile.Clear()
			payments.ClearWrappedDek()
		},
	)

	return &Manager{
		cfg:      cfg,
		log:      log,
		Auth:     auth,
		Profile:  profile,
		Payments: payments,
	}, nil
}

func release() {
	instanceMu.Lock()
	instanceLive = false
	instanceMu.Unlock()
}

// Login starts authentication in the configured mode.
func (m *Manager) Login(ctx context.Context) error {
	return m.Auth.Login(ctx)
}

// Logout ends the session.
func (m *Manager) Logout(ctx context.Context) error {
	return m.Auth.Logout(ctx)
}

// RestoreSession re-establishes a persisted session without user
// interaction, reporting whether one was found.
func (m *Manager) RestoreSession(ctx context.Context) (bool, error) {
	return m.Auth.RestoreSession(ctx)
}

// HandleRedirectCallback routes an incoming deep link or redirect URL to
// the flow that is waiting on it: pin-code payloads carry a data=
// parameter, everything else goes to the auth callback.
func (m *Manager) HandleRedirectCallback(ctx context.Context, redirectURL string) {
	if carriesPinPayload(redirectURL) {
		if m.Payments.HandlePinCodeCallback(redirectURL) {
			return
		}
	}
	m.Auth.HandleRedirectCallback(ctx, redirectURL)
}

func carriesPinPayload(redirectURL string) bool {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return strings.Contains(redirectURL, "data=")
	}
	return u.Query().Has("data")
}

// Close releases the process-wide instance slot. The Manager must not be
// used afterwards.
func (m *Manager) Close() {
	m.closeOnce.Do(release)
}
