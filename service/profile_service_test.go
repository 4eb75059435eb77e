package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphereone/go-sdk/core"
)

type profileFixture struct {
	*authFixture
	svc *ProfileService
}

func newProfileFixture(t *testing.T, cfg *Config) *profileFixture {
	auth := newAuthFixture(t, cfg)
	if cfg.Environment == core.EnvironmentProduction {
		require.NoError(t, auth.svc.loadSession(context.Background(),
			testCredentials(t, time.Now().Add(time.Hour)), false))
	}
	return &profileFixture{
		authFixture: auth,
		svc:         NewProfileService(cfg, auth.http, auth.svc, auth.events, testLogger()),
	}
}

func TestFetchUser(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/user", 200,
		`{"data":{"uid":"u1","name":"Ada","email":"ada@test","isPinCodeSetup":true}}`)

	user, err := f.svc.FetchUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UID)
	assert.Equal(t, "Ada", user.Name)

	cached := f.svc.User()
	require.NotNil(t, cached)
	assert.Equal(t, "u1", cached.UID)
	assert.Equal(t, 1, f.events.published("user"))
}

func TestFetchUser_RemoteError(t *testing.T) {
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/user", 403, `{"error":"forbidden"}`)

	_, err := f.svc.FetchUser(context.Background())
	require.Error(t, err)

	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 403, remote.StatusCode)
	assert.Equal(t, "forbidden", remote.Message)
	assert.Nil(t, f.svc.User())
	assert.Zero(t, f.events.published("user"))
}

func TestFetchUser_Unauthenticated(t *testing.T) {
	cfg := testConfig()
	auth := newAuthFixture(t, cfg)
	svc := NewProfileService(cfg, auth.http, auth.svc, auth.events, testLogger())

	_, err := svc.FetchUser(context.Background())
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestFetchWallets(t *testing.T) {
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/user/wallets", 200,
		`{"data":[{"address":"0xabc","chains":["POLYGON"],"type":"EOA"}]}`)

	wallets, err := f.svc.FetchWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "0xabc", wallets[0].Address)
	assert.Equal(t, 1, f.events.published("wallets"))
}

func TestFetchBalances(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/getFundsAvailable", 200,
		`{"data":{"total":"125430000","balances":[{"price":"1","amount":"125.43","chain":"POLYGON"}]}}`)

	balances, err := f.svc.FetchBalances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 1)

	total := f.svc.TotalBalance()
	require.NotNil(t, total)
	assert.Equal(t, "125430000", total.String())
	assert.Equal(t, "125.43", f.svc.TotalBalanceUSD())
	assert.Equal(t, 1, f.events.published("balances"))
}

// The first balance fetch bypasses the backend cache; later ones use it
// until the snapshot is cleared.
func TestFetchBalances_RefreshCacheFlag(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/getFundsAvailable", 200,
		`{"data":{"total":"0","balances":[]}}`)

	_, err := f.svc.FetchBalances(ctx)
	require.NoError(t, err)
	_, err = f.svc.FetchBalances(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.http.requestCount("https://api.test/getFundsAvailable?refreshCache=true"))
	assert.Equal(t, 1, f.http.requestCount("https://api.test/getFundsAvailable?refreshCache=false"))

	f.svc.Clear()
	_, err = f.svc.FetchBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.http.requestCount("https://api.test/getFundsAvailable?refreshCache=true"))
}

func TestFetchBalances_MalformedTotal(t *testing.T) {
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/getFundsAvailable", 200,
		`{"data":{"total":"not a number","balances":[]}}`)

	_, err := f.svc.FetchBalances(context.Background())
	assert.Error(t, err)
}

func TestFetchNfts(t *testing.T) {
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/getNftsAvailable", 200,
		`{"data":[{"name":"Collectible","address":"0xnft","tokenType":"ERC721"}]}`)

	nfts, err := f.svc.FetchNfts(context.Background())
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, "Collectible", nfts[0].Name)
	assert.Equal(t, 1, f.events.published("nfts"))
}

func TestProfile_Sandbox(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Environment = core.EnvironmentSandbox
	f := newProfileFixture(t, cfg)

	user, err := f.svc.FetchUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sandbox-user", user.UID)

	wallets, err := f.svc.FetchWallets(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, wallets)

	_, err = f.svc.FetchBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, "125.43", f.svc.TotalBalanceUSD())

	nfts, err := f.svc.FetchNfts(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, nfts)

	// Nothing touched the network.
	assert.Empty(t, f.http.captured())
}

func TestProfile_Clear(t *testing.T) {
	f := newProfileFixture(t, testConfig())
	f.http.route("https://api.test/user", 200, `{"data":{"uid":"u1"}}`)

	_, err := f.svc.FetchUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.svc.User())

	f.svc.Clear()

	assert.Nil(t, f.svc.User())
	assert.Empty(t, f.svc.Wallets())
	assert.Empty(t, f.svc.Balances())
	assert.Empty(t, f.svc.Nfts())
	assert.Nil(t, f.svc.TotalBalance())
	assert.Empty(t, f.svc.TotalBalanceUSD())
}
