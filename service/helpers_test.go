package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
	"github.com/sphereone/go-sdk/token"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testConfig() *Config {
	return &Config{
		Environment: core.EnvironmentProduction,
		LoginMode:   core.LoginModeRedirect,
		APIURL:      "https://api.test",
		AuthDomain:  "https://auth.test",
		Audience:    "https://auth.test",
		WalletURL:   "https://wallet.test",
		PinCodeURL:  "https://pin.test",
		APIKey:      "test-api-key",
		ClientID:    "test-client",
		RedirectURL: "http://localhost:3000/callback",
		Scheme:      "sphereone",
	}
}

// testToken builds an unsigned JWT expiring at the given time.
func testToken(t *testing.T, exp time.Time) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{"sub": "user", "exp": exp.Unix()})
	require.NoError(t, err)

	return fmt.Sprintf("%s.%s.%s",
		token.Base64URLEncode(header),
		token.Base64URLEncode(payload),
		token.Base64URLEncode([]byte("sig")),
	)
}

func testCredentials(t *testing.T, exp time.Time) *core.Credentials {
	return &core.Credentials{
		AccessToken:  testToken(t, exp),
		RefreshToken: "refresh-token",
		IDToken:      testToken(t, exp),
		TokenType:    "Bearer",
	}
}

type capturedRequest struct {
	Method  string
	URL     string
	Body    []byte
	Form    url.Values
	Headers map[string]string
}

// fakeHTTP routes requests by URL prefix match and records everything it
// sees. Unrouted URLs fail the exchange.
type fakeHTTP struct {
	mu       sync.Mutex
	routes   map[string]*ports.Response
	requests []capturedRequest
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{routes: map[string]*ports.Response{}}
}

func (f *fakeHTTP) route(urlPrefix string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[urlPrefix] = &ports.Response{StatusCode: status, Body: []byte(body)}
}

func (f *fakeHTTP) respond(method, reqURL string, body []byte, form url.Values, headers map[string]string) (*ports.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, capturedRequest{
		Method: method, URL: reqURL, Body: body, Form: form, Headers: headers,
	})
	for prefix, resp := range f.routes {
		if strings.HasPrefix(reqURL, prefix) {
			return resp, nil
		}
	}
	return nil, fmt.Errorf("no route for %s", reqURL)
}

func (f *fakeHTTP) Get(_ context.Context, url string, headers map[string]string) (*ports.Response, error) {
	return f.respond("GET", url, nil, nil, headers)
}

func (f *fakeHTTP) Post(_ context.Context, url string, body []byte, headers map[string]string) (*ports.Response, error) {
	return f.respond("POST", url, body, nil, headers)
}

func (f *fakeHTTP) PostForm(_ context.Context, url string, form url.Values, headers map[string]string) (*ports.Response, error) {
	return f.respond("POST", url, nil, form, headers)
}

func (f *fakeHTTP) captured() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func (f *fakeHTTP) requestCount(urlPrefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if strings.HasPrefix(req.URL, urlPrefix) {
			n++
		}
	}
	return n
}

// recordingPublisher counts every event by topic.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	return nil
}

func (r *recordingPublisher) published(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event == name {
			n++
		}
	}
	return n
}

func (r *recordingPublisher) PublishUserLoaded(context.Context, *core.User) error {
	return r.record("user")
}

func (r *recordingPublisher) PublishWalletsLoaded(context.Context, []core.Wallet) error {
	return r.record("wallets")
}

func (r *recordingPublisher) PublishBalancesLoaded(context.Context, []core.Balance) error {
	return r.record("balances")
}

func (r *recordingPublisher) PublishNftsLoaded(context.Context, []core.Nft) error {
	return r.record("nfts")
}

func (r *recordingPublisher) PublishLogout(context.Context) error {
	return r.record("logout")
}

// fakeEmbedded records interactions with the embedded wallet surface.
type fakeEmbedded struct {
	mu       sync.Mutex
	toggles  int
	requests int
}

func (f *fakeEmbedded) Toggle(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return nil
}

func (f *fakeEmbedded) RequestCredentials(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return nil
}

// scriptedBrowser replays a canned redirect URL, optionally templated with
// the state parameter from the auth URL it was handed.
type scriptedBrowser struct {
	redirect string
	authURL  string
}

func (b *scriptedBrowser) OpenAuth(_ context.Context, authURL, _ string) (string, error) {
	b.authURL = authURL
	redirect := b.redirect
	if strings.Contains(redirect, "{state}") {
		state := url.QueryEscape(queryParam(authURL, "state"))
		redirect = strings.ReplaceAll(redirect, "{state}", state)
	}
	return redirect, nil
}

func queryParam(rawURL, key string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}
