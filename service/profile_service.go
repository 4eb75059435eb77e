package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
)

// ProfileService maintains the cached profile snapshot: user, wallets,
// balances, and NFTs. Each fetch replaces its slice wholesale and publishes
// an event; reads hand out copies.
type ProfileService struct {
	cfg    *Config
	http   ports.HTTPClient
	auth   *AuthService
	events ports.EventPublisher
	log    logrus.FieldLogger

	mu           sync.RWMutex
	user         *core.User
	wallets      []core.Wallet
	balances     []core.Balance
	nfts         []core.Nft
	totalBalance *big.Int

	// forceRefreshCache makes the first balance fetch after login (or after
	// Clear) bypass the backend's cache. It resets to false once spent.
	forceRefreshCache bool
}

// NewProfileService creates a profile service with an empty snapshot.
func NewProfileService(
	cfg *Config,
	http ports.HTTPClient,
	auth *AuthService,
	events ports.EventPublisher,
	log logrus.FieldLogger,
) *ProfileService {
	return &ProfileService{
		cfg:               cfg,
		http:              http,
		auth:              auth,
		events:            events,
		log:               log,
		forceRefreshCache: true,
	}
}

// FetchUser loads the account profile.
func (p *ProfileService) FetchUser(ctx context.Context) (*core.User, error) {
	var envelope userEnvelope
	if err := p.fetch(ctx, p.cfg.APIURL+"/user", "user", &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("user response missing data")
	}

	p.mu.Lock()
	p.user = envelope.Data
	p.mu.Unlock()

	if err := p.events.PublishUserLoaded(ctx, envelope.Data); err != nil {
		p.log.WithError(err).Warn("failed to publish user loaded event")
	}

	user := *envelope.Data
	return &user, nil
}

// FetchWallets loads the user's chain accounts.
func (p *ProfileService) FetchWallets(ctx context.Context) ([]core.Wallet, error) {
	var envelope walletsEnvelope
	if err := p.fetch(ctx, p.cfg.APIURL+"/user/wallets", "wallets", &envelope); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.wallets = envelope.Data
	p.mu.Unlock()

	if err := p.events.PublishWalletsLoaded(ctx, envelope.Data); err != nil {
		p.log.WithError(err).Warn("failed to publish wallets loaded event")
	}

	return append([]core.Wallet(nil), envelope.Data...), nil
}

// FetchBalances loads token positions and the aggregate total. The total
// arrives as a base-10 integer of millionths of a dollar.
func (p *ProfileService) FetchBalances(ctx context.Context) ([]core.Balance, error) {
	p.mu.RLock()
	refresh := p.forceRefreshCache
	p.mu.RUnlock()

	fetchURL := fmt.Sprintf("%s/getFundsAvailable?refreshCache=%t", p.cfg.APIURL, refresh)

	var envelope balancesEnvelope
	if err := p.fetch(ctx, fetchURL, "balances", &envelope); err != nil {
		return nil, err
	}

	total, ok := new(big.Int).SetString(envelope.Data.Total, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance total %q", envelope.Data.Total)
	}

	p.mu.Lock()
	p.balances = envelope.Data.Balances
	p.totalBalance = total
	p.forceRefreshCache = false
	p.mu.Unlock()

	if err := p.events.PublishBalancesLoaded(ctx, envelope.Data.Balances); err != nil {
		p.log.WithError(err).Warn("failed to publish balances loaded event")
	}

	return append([]core.Balance(nil), envelope.Data.Balances...), nil
}

// FetchNfts loads the user's collectibles.
func (p *ProfileService) FetchNfts(ctx context.Context) ([]core.Nft, error) {
	var envelope nftsEnvelope
	if err := p.fetch(ctx, p.cfg.APIURL+"/getNftsAvailable", "nfts", &envelope); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.nfts = envelope.Data
	p.mu.Unlock()

	if err := p.events.PublishNftsLoaded(ctx, envelope.Data); err != nil {
		p.log.WithError(err).Warn("failed to publish nfts loaded event")
	}

	return append([]core.Nft(nil), envelope.Data...), nil
}

// FetchAll kicks off all four profile fetches concurrently. Failures are
// logged; subscribers see whatever subset loads.
func (p *ProfileService) FetchAll(ctx context.Context) {
	go func() {
		if _, err := p.FetchUser(ctx); err != nil {
			p.log.WithError(err).Warn("failed to load user")
		}
	}()
	go func() {
		if _, err := p.FetchWallets(ctx); err != nil {
			p.log.WithError(err).Warn("failed to load wallets")
		}
	}()
	go func() {
		if _, err := p.FetchBalances(ctx); err != nil {
			p.log.WithError(err).Warn("failed to load balances")
		}
	}()
	go func() {
		if _, err := p.FetchNfts(ctx); err != nil {
			p.log.WithError(err).Warn("failed to load nfts")
		}
	}()
}

// fetch runs one authenticated GET and decodes the envelope, serving the
// embedded fixture instead in the sandbox environment.
func (p *ProfileService) fetch(ctx context.Context, url, fixtureName string, envelope interface{}) error {
	if p.cfg.Environment == core.EnvironmentSandbox {
		return json.Unmarshal(fixture(fixtureName), envelope)
	}

	if err := p.auth.EnsureFreshToken(ctx); err != nil {
		return err
	}

	resp, err := p.http.Get(ctx, url, p.auth.AuthHeaders())
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", fixtureName, err)
	}
	if !resp.Success() {
		return remoteError(resp)
	}

	if err := json.Unmarshal(resp.Body, envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", fixtureName, err)
	}
	return nil
}

// User returns a copy of the cached profile, or nil.
func (p *ProfileService) User() *core.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	user := *p.user
	return &user
}

// Wallets returns a copy of the cached wallets.
func (p *ProfileService) Wallets() []core.Wallet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]core.Wallet(nil), p.wallets...)
}

// Balances returns a copy of the cached balances.
func (p *ProfileService) Balances() []core.Balance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]core.Balance(nil), p.balances...)
}

// Nfts returns a copy of the cached collectibles.
func (p *ProfileService) Nfts() []core.Nft {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]core.Nft(nil), p.nfts...)
}

// TotalBalance returns the aggregate balance in millionths of a dollar, or
// nil before the first balance fetch.
func (p *ProfileService) TotalBalance() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.totalBalance == nil {
		return nil
	}
	return new(big.Int).Set(p.totalBalance)
}

// TotalBalanceUSD renders the aggregate balance as a dollar amount with
// two decimal places, empty before the first balance fetch.
func (p *ProfileService) TotalBalanceUSD() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.totalBalance == nil {
		return ""
	}
	return decimal.NewFromBigInt(p.totalBalance, -6).StringFixed(2)
}

// Clear drops the snapshot and re-arms the cache bypass for the next
// balance fetch.
func (p *ProfileService) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = nil
	p.wallets = nil
	p.balances = nil
	p.nfts = nil
	p.totalBalance = nil
	p.forceRefreshCache = true
}
