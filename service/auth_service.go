package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
	"github.com/sphereone/go-sdk/token"
)

const sourceName = "go-sdk"

const stateLength = 24

const stateCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AuthService owns the session lifecycle: login, redirect callback
// handling, refresh, and logout. All state transitions happen under its
// lock; credentials never leave it except as copies.
type AuthService struct {
	cfg      *Config
	http     ports.HTTPClient
	creds    *CredentialStore
	browser  ports.AuthBrowser
	embedded ports.EmbeddedWallet
	events   ports.EventPublisher
	log      logrus.FieldLogger

	mu      sync.RWMutex
	state   core.AuthState
	session *core.Credentials
	openID  *core.OpenIDConfiguration

	refreshGroup singleflight.Group

	onAuthenticated func(ctx context.Context)
	onLogout        func(ctx context.Context)
}

// NewAuthService creates an auth service in the unauthenticated state.
func NewAuthService(
	cfg *Config,
	http ports.HTTPClient,
	creds *CredentialStore,
	browser ports.AuthBrowser,
	embedded ports.EmbeddedWallet,
	events ports.EventPublisher,
	log logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		http:     http,
		creds:    creds,
		browser:  browser,
		embedded: embedded,
		events:   events,
		log:      log,
		state:    core.StateUnauthenticated,
	}
}

// SetHooks registers callbacks fired after a session is established and
// after logout. Both may be nil.
func (a *AuthService) SetHooks(onAuthenticated, onLogout func(ctx context.Context)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAuthenticated = onAuthenticated
	a.onLogout = onLogout
}

// State returns the current session lifecycle state.
func (a *AuthService) State() core.AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// IsAuthenticated reports whether a session with a currently valid access
// token is held.
func (a *AuthService) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil && token.Valid(a.session.AccessToken, time.Now())
}

// Credentials returns a copy of the current session, or nil.
func (a *AuthService) Credentials() *core.Credentials {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	copied := *a.session
	return &copied
}

// AuthHeaders builds the header set every backend request carries. The
// bearer token is included only while a session is held.
func (a *AuthService) AuthHeaders() map[string]string {
	headers := map[string]string{
		"x-api-key":            a.cfg.APIKey,
		"sphere-one-source":    sourceName,
		"sphere-one-client-id": a.cfg.ClientID,
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session != nil {
		headers["Authorization"] = "Bearer " + a.session.AccessToken
	}
	return headers
}

// Login starts authentication. In embedded mode it toggles the wallet
// surface open. In redirect mode it opens the identity provider in a
// browser and blocks until the redirect lands or ctx is cancelled.
func (a *AuthService) Login(ctx context.Context) error {
	if a.IsAuthenticated() {
		a.log.Warn("login requested while already authenticated, ignoring")
		return nil
	}

	if a.cfg.LoginMode == core.LoginModeEmbedded {
		if a.embedded == nil {
			return fmt.Errorf("embedded login: no embedded wallet configured")
		}
		return a.embedded.Toggle(ctx)
	}

	oidc, err := a.fetchOpenIDConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover identity provider: %w", err)
	}

	state, err := secureRandomString(stateLength)
	if err != nil {
		return fmt.Errorf("failed to generate login state: %w", err)
	}
	if err := a.creds.SaveLoginState(ctx, state); err != nil {
		return fmt.Errorf("failed to persist login state: %w", err)
	}

	a.mu.Lock()
	a.state = core.StateLoginPending
	a.mu.Unlock()

	authURL := fmt.Sprintf(
		"%s?response_type=code&client_id=%s&state=%s&audience=%s&scope=openid%%20profile%%20email%%20offline_access&redirect_uri=%s",
		oidc.AuthorizationEndpoint,
		url.QueryEscape(a.cfg.ClientID),
		state,
		url.QueryEscape(a.cfg.Audience),
		url.QueryEscape(a.cfg.RedirectURL),
	)

	redirect, err := a.browser.OpenAuth(ctx, authURL, a.cfg.Scheme)
	if err != nil {
		a.mu.Lock()
		a.state = core.StateUnauthenticated
		a.mu.Unlock()
		return fmt.Errorf("browser auth session failed: %w", err)
	}

	a.HandleRedirectCallback(ctx, redirect)
	return nil
}

// HandleRedirectCallback consumes the URL the identity provider redirected
// to. Malformed or forged callbacks are logged and dropped rather than
// surfaced: the redirect channel is attacker-reachable and a hostile deep
// link must never crash the host application.
func (a *AuthService) HandleRedirectCallback(ctx context.Context, redirectURL string) {
	if a.cfg.LoginMode != core.LoginModeRedirect {
		a.log.Warn("redirect callback received outside redirect mode, ignoring")
		return
	}
	if a.IsAuthenticated() {
		a.log.Warn("redirect callback received while authenticated, ignoring")
		return
	}
	if a.State() != core.StateLoginPending {
		a.log.Warn("redirect callback received with no login pending, ignoring")
		return
	}

	_, rest, ok := strings.Cut(redirectURL, "code=")
	if !ok {
		a.log.WithField("url", redirectURL).Warn("redirect callback missing code, ignoring")
		return
	}
	code, rest, ok := strings.Cut(rest, "&state=")
	if !ok {
		a.log.WithField("url", redirectURL).Warn("redirect callback missing state, ignoring")
		return
	}
	state := rest
	if i := strings.Index(state, "#"); i >= 0 {
		state = state[:i]
	}
	if i := strings.Index(state, "&"); i >= 0 {
		state = state[:i]
	}

	expected := a.creds.LoadLoginState(ctx)
	if expected == "" || state != expected {
		a.log.WithError(core.ErrCsrfMismatch).Warn("dropping redirect callback")
		return
	}

	if err := a.exchangeCode(ctx, code); err != nil {
		a.log.WithError(err).Error("authorization code exchange failed")
		a.mu.Lock()
		a.state = core.StateUnauthenticated
		a.mu.Unlock()
	}
}

// exchangeCode swaps the authorization code for tokens. The endpoint is
// keyed on client id and redirect URI, not on headers.
func (a *AuthService) exchangeCode(ctx context.Context, code string) error {
	exchangeURL := fmt.Sprintf(
		"%s/auth?code=%s&clientId=%s&redirectUri=%s&state=%s",
		a.cfg.APIURL,
		url.QueryEscape(code),
		url.QueryEscape(a.cfg.ClientID),
		url.QueryEscape(a.cfg.RedirectURL),
		a.creds.LoadLoginState(ctx),
	)

	resp, err := a.http.Get(ctx, exchangeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if !resp.Success() {
		return remoteError(resp)
	}

	var envelope credentialsEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return fmt.Errorf("failed to decode credentials response: %w", err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("credentials response missing data")
	}

	return a.loadSession(ctx, envelope.Data, true)
}

// HandleEmbeddedCredentials consumes a credential payload pushed by the
// embedded wallet surface. Payloads arriving outside embedded mode or over
// a live session are ignored: the push channel is host-page reachable and
// must not authenticate or replace a session on its own.
func (a *AuthService) HandleEmbeddedCredentials(ctx context.Context, payload []byte) error {
	if a.cfg.LoginMode != core.LoginModeEmbedded {
		a.log.Warn("embedded credentials received outside embedded mode, ignoring")
		return nil
	}
	if a.IsAuthenticated() {
		a.log.Warn("embedded credentials received while authenticated, ignoring")
		return nil
	}

	var creds core.Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return fmt.Errorf("failed to decode embedded credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return fmt.Errorf("embedded credentials missing access token")
	}
	return a.loadSession(ctx, &creds, a.cfg.PersistEmbeddedSession)
}

// loadSession installs new credentials, optionally persisting them, and
// fires the authenticated hook.
func (a *AuthService) loadSession(ctx context.Context, creds *core.Credentials, persist bool) error {
	a.mu.Lock()
	a.session = creds
	a.state = core.StateAuthenticated
	hook := a.onAuthenticated
	a.mu.Unlock()

	if persist {
		if err := a.creds.Save(ctx, creds); err != nil {
			a.log.WithError(err).Warn("failed to persist session credentials")
		}
	}

	if hook != nil {
		hook(ctx)
	}
	return nil
}

// RestoreSession re-establishes a session from the credential store without
// user interaction. In the sandbox environment a canned session is loaded
// instead. Returns true when a session was restored.
func (a *AuthService) RestoreSession(ctx context.Context) (bool, error) {
	if a.IsAuthenticated() {
		return true, nil
	}

	if a.cfg.Environment == core.EnvironmentSandbox {
		var envelope credentialsEnvelope
		if err := json.Unmarshal(fixture("credentials"), &envelope); err != nil {
			return false, fmt.Errorf("failed to decode sandbox credentials: %w", err)
		}
		if envelope.Data == nil {
			return false, fmt.Errorf("sandbox credentials missing data")
		}
		return true, a.loadSession(ctx, envelope.Data, false)
	}

	if a.cfg.LoginMode == core.LoginModeEmbedded && !a.cfg.PersistEmbeddedSession {
		if a.embedded == nil {
			return false, nil
		}
		// The surface owns the session; ask it to push its credentials
		// back through HandleEmbeddedCredentials.
		return false, a.embedded.RequestCredentials(ctx)
	}

	creds := a.creds.Load(ctx)
	if creds == nil {
		return false, nil
	}

	if !token.Valid(creds.AccessToken, time.Now()) {
		a.mu.Lock()
		a.session = creds
		a.state = core.StateAuthenticated
		a.mu.Unlock()
		if err := a.Refresh(ctx); err != nil {
			a.mu.Lock()
			a.session = nil
			a.state = core.StateUnauthenticated
			a.mu.Unlock()
			return false, fmt.Errorf("failed to refresh restored session: %w", err)
		}
		a.mu.RLock()
		hook := a.onAuthenticated
		a.mu.RUnlock()
		if hook != nil {
			hook(ctx)
		}
		return true, nil
	}

	return true, a.loadSession(ctx, creds, false)
}

// fetchOpenIDConfiguration loads and caches the provider's discovery
// document.
func (a *AuthService) fetchOpenIDConfiguration(ctx context.Context) (*core.OpenIDConfiguration, error) {
	a.mu.RLock()
	cached := a.openID
	a.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	resp, err := a.http.Get(ctx, a.cfg.AuthDomain+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch openid configuration: %w", err)
	}
	if !resp.Success() {
		return nil, remoteError(resp)
	}

	var oidc core.OpenIDConfiguration
	if err := json.Unmarshal(resp.Body, &oidc); err != nil {
		return nil, fmt.Errorf("failed to decode openid configuration: %w", err)
	}

	a.mu.Lock()
	a.openID = &oidc
	a.mu.Unlock()
	return &oidc, nil
}

// Refresh exchanges the refresh token for a new token set. On failure the
// existing session is kept so the caller can retry or surface the error.
func (a *AuthService) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return core.ErrNotAuthenticated
	}
	refreshToken := a.session.RefreshToken
	prevState := a.state
	a.state = core.StateRefreshing
	a.mu.Unlock()

	restoreState := func() {
		a.mu.Lock()
		a.state = prevState
		a.mu.Unlock()
	}

	oidc, err := a.fetchOpenIDConfiguration(ctx)
	if err != nil {
		restoreState()
		return fmt.Errorf("failed to discover token endpoint: %w", err)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {a.cfg.ClientID},
	}

	resp, err := a.http.PostForm(ctx, oidc.TokenEndpoint, form, nil)
	if err != nil {
		restoreState()
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	if !resp.Success() {
		restoreState()
		a.log.WithField("status", resp.StatusCode).Warn("token refresh rejected")
		return remoteError(resp)
	}

	var creds core.Credentials
	if err := json.Unmarshal(resp.Body, &creds); err != nil || creds.AccessToken == "" {
		restoreState()
		return fmt.Errorf("failed to decode refreshed credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}

	a.mu.Lock()
	a.session = &creds
	a.state = core.StateAuthenticated
	a.mu.Unlock()

	if a.cfg.LoginMode == core.LoginModeRedirect || a.cfg.PersistEmbeddedSession {
		if err := a.creds.Save(ctx, &creds); err != nil {
			a.log.WithError(err).Warn("failed to persist refreshed credentials")
		}
	}
	return nil
}

// EnsureFreshToken refreshes the access token if it is expired. Concurrent
// callers share a single refresh.
func (a *AuthService) EnsureFreshToken(ctx context.Context) error {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()
	if session == nil {
		return core.ErrNotAuthenticated
	}
	if token.Valid(session.AccessToken, time.Now()) {
		return nil
	}

	_, err, _ := a.refreshGroup.Do("refresh", func() (interface{}, error) {
		a.mu.RLock()
		current := a.session
		a.mu.RUnlock()
		if current != nil && token.Valid(current.AccessToken, time.Now()) {
			return nil, nil
		}
		return nil, a.Refresh(ctx)
	})
	return err
}

// Logout tears down the session: local state and persisted credentials are
// always cleared, then the provider's end-session endpoint is hit on a
// best-effort basis. Embedded-mode sessions belong to the wallet surface
// and cannot be ended from here.
func (a *AuthService) Logout(ctx context.Context) error {
	if a.cfg.LoginMode == core.LoginModeEmbedded {
		a.log.Warn("logout is not supported in embedded mode")
		return core.ErrEmbeddedLogoutUnsupported
	}

	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return core.ErrNotAuthenticated
	}
	idToken := a.session.IDToken
	a.session = nil
	a.state = core.StateUnauthenticated
	hook := a.onLogout
	a.mu.Unlock()

	if err := a.creds.Clear(ctx); err != nil {
		a.log.WithError(err).Warn("failed to clear persisted credentials")
	}

	if hook != nil {
		hook(ctx)
	}

	if oidc, err := a.fetchOpenIDConfiguration(ctx); err == nil && oidc.EndSessionEndpoint != "" {
		endURL := fmt.Sprintf("%s?id_token_hint=%s", oidc.EndSessionEndpoint, url.QueryEscape(idToken))
		if resp, err := a.http.Get(ctx, endURL, nil); err != nil {
			a.log.WithError(err).Warn("end-session request failed")
		} else if !resp.Success() {
			a.log.WithField("status", resp.StatusCode).Warn("end-session request rejected")
		}
	} else if err != nil {
		a.log.WithError(err).Warn("skipping end-session call")
	}

	if err := a.events.PublishLogout(ctx); err != nil {
		a.log.WithError(err).Warn("failed to publish logout event")
	}
	return nil
}

// secureRandomString returns an n-character alphanumeric string from a
// cryptographic source.
func secureRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = stateCharset[int(b)%len(stateCharset)]
	}
	return string(buf), nil
}
