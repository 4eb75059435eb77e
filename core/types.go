package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Environment selects which backend the SDK talks to.
type Environment string

const (
	// EnvironmentProduction talks to the live SphereOne backend.
	EnvironmentProduction Environment = "PRODUCTION"

	// EnvironmentSandbox serves embedded fixture data and never touches the network.
	EnvironmentSandbox Environment = "SANDBOX"
)

// LoginMode is the authentication surface the SDK drives.
type LoginMode string

const (
	// LoginModeRedirect opens a system browser against the identity provider
	// and consumes the OAuth redirect callback.
	LoginModeRedirect LoginMode = "REDIRECT"

	// LoginModeEmbedded delegates to a pre-mounted embedded wallet surface
	// which pushes credentials back through a callback.
	LoginModeEmbedded LoginMode = "EMBEDDED"
)

// AuthState is the session lifecycle state.
type AuthState string

const (
	StateUnauthenticated AuthState = "UNAUTHENTICATED"
	StateLoginPending    AuthState = "LOGIN_PENDING"
	StateAuthenticated   AuthState = "AUTHENTICATED"
	StateRefreshing      AuthState = "REFRESHING"
)

// SupportedChain is a blockchain the backend can route payments over.
type SupportedChain string

const (
	ChainEthereum  SupportedChain = "ETHEREUM"
	ChainSolana    SupportedChain = "SOLANA"
	ChainPolygon   SupportedChain = "POLYGON"
	ChainGnosis    SupportedChain = "GNOSIS"
	ChainOptimism  SupportedChain = "OPTIMISM"
	ChainImmutable SupportedChain = "IMMUTABLE"
	ChainAvalanche SupportedChain = "AVALANCHE"
	ChainBinance   SupportedChain = "BINANCE"
	ChainArbitrum  SupportedChain = "ARBITRUM"
	ChainFantom    SupportedChain = "FANTOM"
	ChainEosEvm    SupportedChain = "EOSEVM"
	ChainFlow      SupportedChain = "FLOW"
	ChainKlaytn    SupportedChain = "KLAYTN"
	ChainDfk       SupportedChain = "DFK"
)

// EVM reports whether addresses on the chain are 20-byte hex addresses.
func (c SupportedChain) EVM() bool {
	switch c {
	case ChainSolana, ChainFlow, ChainImmutable:
		return false
	default:
		return true
	}
}

// WalletType distinguishes externally-owned accounts from smart wallets.
type WalletType string

const (
	WalletTypeEOA   WalletType = "EOA"
	WalletTypeSmart WalletType = "SMARTWALLET"
)

// TxStatus is the backend's view of a transaction or route step.
type TxStatus string

const (
	TxStatusPending    TxStatus = "PENDING"
	TxStatusProcessing TxStatus = "PROCESSING"
	TxStatusSuccess    TxStatus = "SUCCESS"
	TxStatusFailure    TxStatus = "FAILURE"
	TxStatusCanceled   TxStatus = "CANCELED"
	TxStatusWaiting    TxStatus = "WAITING"
)

// BatchType is the dominant kind of a route batch.
type BatchType string

const (
	BatchTransfer BatchType = "TRANSFER"
	BatchSwap     BatchType = "SWAP"
	BatchBridge   BatchType = "BRIDGE"
)

// Pin-code popup targets.
const (
	PinTargetSendNft   = "SEND_NFT"
	PinTargetAddWallet = "ADD_WALLET"
)

// Credentials is the token set issued by the identity provider. It is owned
// by the auth service; expiry is always decoded from the access token itself.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
	ExpiresIn    string `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// OpenIDConfiguration is the identity provider's discovery document.
type OpenIDConfiguration struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// User is the authenticated account profile.
type User struct {
	UID            string `json:"uid"`
	SignedUp       bool   `json:"signedUp"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	CurrencyISO    string `json:"currencyISO"`
	CountryCode    string `json:"countryCode"`
	CountryFlag    string `json:"countryFlag"`
	IsMerchant     bool   `json:"isMerchant"`
	IsPinCodeSetup bool   `json:"isPinCodeSetup"`
}

// Wallet is one of the user's chain accounts.
type Wallet struct {
	Address    string           `json:"address"`
	Chains     []SupportedChain `json:"chains"`
	PublicKey  string           `json:"publicKey"`
	Type       WalletType       `json:"type"`
	IsImported bool             `json:"isImported"`
	UID        string           `json:"uid"`
}

// TokenMetadata describes a fungible token.
type TokenMetadata struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals int            `json:"decimals"`
	Address  string         `json:"address"`
	LogoURI  string         `json:"logoURI"`
	Chain    SupportedChain `json:"chain"`
}

// Balance is a single token position.
type Balance struct {
	Price         decimal.Decimal `json:"price"`
	Amount        decimal.Decimal `json:"amount"`
	Address       string          `json:"address"`
	Chain         string          `json:"chain"`
	TokenMetadata TokenMetadata   `json:"tokenMetadata"`
}

// Nft is a collectible owned by the user.
type Nft struct {
	Img       string `json:"img"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	TokenType string `json:"tokenType"`
}

// BigNumber is the backend's serialized arbitrary-precision integer.
type BigNumber struct {
	Hex  string `json:"hex"`
	Type string `json:"type"`
}

// ChargeItem is a line item on a charge.
type ChargeItem struct {
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Amount   float64 `json:"amount"`
	Quantity float64 `json:"quantity"`

	// NFT checkout only.
	NftURI             string          `json:"nftUri,omitempty"`
	NftContractAddress string          `json:"nftContractAddress,omitempty"`
	NftChain           *SupportedChain `json:"nftChain,omitempty"`
}

// ChargeRequest describes a charge to be created server-side.
type ChargeRequest struct {
	TokenAddress string         `json:"tokenAddress"`
	Symbol       string         `json:"symbol"`
	Items        []ChargeItem   `json:"items"`
	Chain        SupportedChain `json:"chain"`
	SuccessURL   string         `json:"successUrl"`
	CancelURL    string         `json:"cancelUrl"`
	Amount       float64        `json:"amount"`
	ToAddress    string         `json:"toAddress,omitempty"`
}

// Charge references a server-side charge. The client only ever holds the id
// needed for the follow-up payment calls.
type Charge struct {
	ChargeID   string `json:"chargeId"`
	PaymentURL string `json:"paymentUrl"`
}

// TransferData is the payload of a transfer route action.
type TransferData struct {
	FromChain   SupportedChain `json:"fromChain"`
	FromAmount  BigNumber      `json:"fromAmount"`
	FromAddress string         `json:"fromAddress"`
	FromToken   TokenMetadata  `json:"fromToken"`
	ToAddress   string         `json:"toAddress"`
}

// SwapData is the payload of a swap route action.
type SwapData struct {
	FromChain  SupportedChain `json:"fromChain"`
	FromAmount BigNumber      `json:"fromAmount"`
	FromToken  TokenMetadata  `json:"fromToken"`
	ToAmount   BigNumber      `json:"toAmount"`
	ToToken    TokenMetadata  `json:"toToken"`
}

// BridgeQuote is the quote embedded in a bridge route action.
type BridgeQuote struct {
	FromChain  SupportedChain `json:"fromChain"`
	FromAmount BigNumber      `json:"fromAmount"`
	FromToken  TokenMetadata  `json:"fromToken"`
	ToChain    SupportedChain `json:"toChain"`
	ToAmount   BigNumber      `json:"toAmount"`
	ToToken    TokenMetadata  `json:"toToken"`
}

// BridgeData is the payload of a bridge route action.
type BridgeData struct {
	Quote BridgeQuote `json:"quote"`
}

// RouteAction is one step inside a route batch. Exactly one of the data
// payloads is set; the others stay nil.
type RouteAction struct {
	Type         string        `json:"type"`
	Status       TxStatus      `json:"status"`
	TransferData *TransferData `json:"transferData"`
	SwapData     *SwapData     `json:"swapData"`
	BridgeData   *BridgeData   `json:"bridgeData"`
}

// RouteBatch is an ordered group of actions executed together server-side.
type RouteBatch struct {
	Description string        `json:"description"`
	Status      TxStatus      `json:"status"`
	Actions     []RouteAction `json:"actions"`
}

// FormattedBatch is the display-ready projection of a RouteBatch.
type FormattedBatch struct {
	Type       BatchType `json:"type"`
	Title      string    `json:"title"`
	Operations []string  `json:"operations"`
}

// RouteEstimation is the cost/time estimate for a route. Route carries the
// raw batches as a nested JSON document; RouteParsed is filled in by the
// client after formatting.
type RouteEstimation struct {
	CostUSD      decimal.Decimal  `json:"costUsd"`
	TimeEstimate int              `json:"timeEstimate"`
	Gas          string           `json:"gas"`
	Route        string           `json:"route"`
	RouteParsed  []FormattedBatch `json:"routeParsed,omitempty"`
}

// RouteDestination is where the payment ends up.
type RouteDestination struct {
	ToAmount  string        `json:"toAmount"`
	ToAddress string        `json:"toAddress"`
	ToChain   string        `json:"toChain"`
	ToToken   TokenMetadata `json:"toToken"`
}

// RouteEstimate is the full estimation response for a charge.
type RouteEstimate struct {
	TxID           string           `json:"txId"`
	Status         TxStatus         `json:"status"`
	Total          decimal.Decimal  `json:"total"`
	TotalUSD       decimal.Decimal  `json:"totalUsd"`
	Estimation     RouteEstimation  `json:"estimation"`
	To             RouteDestination `json:"to"`
	StartTimestamp int64            `json:"startTimestamp"`
	LimitTimestamp int64            `json:"limitTimestamp"`
}

// Route is the executed payment route returned by the pay endpoint.
type Route struct {
	ID        string        `json:"id"`
	ToChain   string        `json:"toChain"`
	ToAmount  string        `json:"toAmount"`
	ToAddress string        `json:"toAddress"`
	ToToken   TokenMetadata `json:"toToken"`
	Status    TxStatus      `json:"status"`
	Batches   []RouteBatch  `json:"batches"`
	FromUID   string        `json:"fromUid"`
}

// PayResult is the outcome of paying a charge.
type PayResult struct {
	Status TxStatus `json:"status"`
	Route  Route    `json:"route"`
}

// NftTransferRequest describes an NFT transfer between wallets.
type NftTransferRequest struct {
	FromAddress     string         `json:"fromAddress"`
	ToAddress       string         `json:"toAddress"`
	Chain           SupportedChain `json:"chain"`
	NftTokenAddress string         `json:"nftTokenAddress"`
	TokenID         string         `json:"tokenId"`
	Reason          string         `json:"reason"`
}

// NftTransferResult carries the transaction hashes of a completed transfer.
type NftTransferResult struct {
	ApproveTxHash     string `json:"approveTxHash"`
	UserOperationHash string `json:"userOperationHash"`
}

// WrappedDek is the short-lived authorization token proving the user
// unlocked their signing key via the PIN flow. It is single-use: the payment
// service clears it after every pay or transfer attempt.
type WrappedDek struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the DEK can no longer serve from cache. A zero
// expiry means the expiry could not be decoded; such a DEK is never served
// from cache and is fetched fresh instead.
func (d WrappedDek) Expired(now time.Time) bool {
	return d.Value == "" || !d.ExpiresAt.After(now)
}
