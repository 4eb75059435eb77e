package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
	"github.com/sphereone/go-sdk/token"
)

// ChargeOptions tune charge creation.
type ChargeOptions struct {
	IsTest           bool
	IsDirectTransfer bool
}

// PaymentService orchestrates charges, route estimation, payment, and NFT
// transfers. It holds the wrapped DEK produced by the PIN flow; the DEK is
// single-use and is cleared after every spend attempt, successful or not.
type PaymentService struct {
	cfg     *Config
	http    ports.HTTPClient
	auth    *AuthService
	browser ports.AuthBrowser
	log     logrus.FieldLogger

	mu  sync.Mutex
	dek core.WrappedDek
}

// NewPaymentService creates a payment service with no DEK loaded.
func NewPaymentService(
	cfg *Config,
	http ports.HTTPClient,
	auth *AuthService,
	browser ports.AuthBrowser,
	log logrus.FieldLogger,
) *PaymentService {
	return &PaymentService{
		cfg:     cfg,
		http:    http,
		auth:    auth,
		browser: browser,
		log:     log,
	}
}

// CreateCharge registers a new charge with the backend and returns its id
// and hosted payment URL. Any previously fetched DEK is invalidated first:
// it was bound to an older transaction.
func (s *PaymentService) CreateCharge(ctx context.Context, charge *core.ChargeRequest, opts ChargeOptions) (*core.Charge, error) {
	s.ClearWrappedDek()

	if err := s.auth.EnsureFreshToken(ctx); err != nil {
		return nil, &core.ChargeCreationError{Err: err}
	}

	body, err := json.Marshal(struct {
		IsTest           bool                `json:"isTest"`
		IsDirectTransfer bool                `json:"isDirectTransfer"`
		ChargeData       *core.ChargeRequest `json:"chargeData"`
	}{opts.IsTest, opts.IsDirectTransfer, charge})
	if err != nil {
		return nil, &core.ChargeCreationError{Err: err}
	}

	resp, err := s.http.Post(ctx, s.cfg.APIURL+"/createCharge", body, s.auth.AuthHeaders())
	if err != nil {
		return nil, &core.ChargeCreationError{Err: err}
	}
	if !resp.Success() {
		return nil, &core.ChargeCreationError{Err: remoteError(resp)}
	}

	var envelope chargeEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, &core.ChargeCreationError{Err: fmt.Errorf("failed to decode charge response: %w", err)}
	}
	if envelope.Data == nil {
		return nil, &core.ChargeCreationError{Err: fmt.Errorf("charge response missing data")}
	}

	return envelope.Data, nil
}

// GetRouteEstimation asks the backend how a charge would be paid from the
// user's balances. Funds shortfalls come back as a RouteEstimateError with
// an on-ramp link; the nested route document is parsed and formatted into
// RouteParsed.
func (s *PaymentService) GetRouteEstimation(ctx context.Context, transactionID string) (*core.RouteEstimate, error) {
	if err := s.auth.EnsureFreshToken(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"transactionId": transactionID})
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Post(ctx, s.cfg.APIURL+"/pay/route", body, s.auth.AuthHeaders())
	if err != nil {
		return nil, fmt.Errorf("route estimation request failed: %w", err)
	}
	if !resp.Success() {
		var failure onrampEnvelope
		if json.Unmarshal(resp.Body, &failure) == nil && failure.Error.OnrampRequired() {
			return nil, &core.RouteEstimateError{
				Message:    failure.Error.String(),
				OnrampLink: failure.onrampLink(),
			}
		}
		return nil, remoteError(resp)
	}

	var envelope routeEstimateEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode route estimation: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("route estimation missing data")
	}

	estimate := envelope.Data
	if estimate.Estimation.Route != "" {
		var batches []core.RouteBatch
		if err := json.Unmarshal([]byte(estimate.Estimation.Route), &batches); err != nil {
			return nil, fmt.Errorf("failed to decode route document: %w", err)
		}
		formatted := make([]core.FormattedBatch, 0, len(batches))
		for _, batch := range batches {
			fb, err := core.FormatBatch(batch.Description, batch.Actions)
			if err != nil {
				return nil, fmt.Errorf("failed to format route batch: %w", err)
			}
			formatted = append(formatted, fb)
		}
		estimate.Estimation.RouteParsed = formatted
	}

	return estimate, nil
}

// GetWrappedDek returns the cached DEK or fetches a fresh one. The DEK's
// lifetime is read from the token itself; an undecodable expiry leaves the
// DEK trusted until the backend rejects it.
func (s *PaymentService) GetWrappedDek(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.dek
	s.mu.Unlock()
	if !cached.Expired(time.Now()) {
		return cached.Value, nil
	}

	if err := s.auth.EnsureFreshToken(ctx); err != nil {
		return "", &core.DekFetchError{Err: err}
	}

	resp, err := s.http.Post(ctx, s.cfg.APIURL+"/createOrRecoverAccount", nil, s.auth.AuthHeaders())
	if err != nil {
		return "", &core.DekFetchError{Err: err}
	}
	if !resp.Success() {
		return "", &core.DekFetchError{Err: remoteError(resp)}
	}

	var envelope dekEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return "", &core.DekFetchError{Err: fmt.Errorf("failed to decode dek response: %w", err)}
	}
	if envelope.Data == "" {
		return "", &core.DekFetchError{Err: fmt.Errorf("dek response missing data")}
	}

	s.SetWrappedDek(envelope.Data)
	return envelope.Data, nil
}

// SetWrappedDek installs a DEK obtained out of band, typically from the
// PIN-code redirect. Expiry decoding is best effort.
func (s *PaymentService) SetWrappedDek(value string) {
	dek := core.WrappedDek{Value: value}
	if exp, err := token.ExpiresAt(value); err == nil {
		dek.ExpiresAt = exp
	}

	s.mu.Lock()
	s.dek = dek
	s.mu.Unlock()
}

// ClearWrappedDek drops the held DEK.
func (s *PaymentService) ClearWrappedDek() {
	s.mu.Lock()
	s.dek = core.WrappedDek{}
	s.mu.Unlock()
}

// PayCharge executes payment of a charge using the held DEK. The DEK is
// consumed by the attempt whatever the outcome. Funds shortfalls come back
// as a PayError with an on-ramp link.
func (s *PaymentService) PayCharge(ctx context.Context, transactionID string) (*core.PayResult, error) {
	if err := s.auth.EnsureFreshToken(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	dek := s.dek
	s.mu.Unlock()
	if dek.Value == "" {
		return nil, core.ErrMissingWrappedDek
	}
	defer s.ClearWrappedDek()

	body, err := json.Marshal(map[string]string{
		"wrappedDek":    dek.Value,
		"transactionId": transactionID,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Post(ctx, s.cfg.APIURL+"/pay", body, s.auth.AuthHeaders())
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	if !resp.Success() {
		var failure onrampEnvelope
		if json.Unmarshal(resp.Body, &failure) == nil && failure.Error != nil {
			if failure.Error.OnrampRequired() {
				return nil, &core.PayError{
					Message:    failure.Error.String(),
					OnrampLink: failure.onrampLink(),
				}
			}
			// PayError is reserved for the recoverable funds-shortfall
			// case; everything else is an ordinary backend failure.
			return nil, &core.RemoteError{StatusCode: resp.StatusCode, Message: failure.Error.String()}
		}
		return nil, remoteError(resp)
	}

	var result core.PayResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode payment result: %w", err)
	}

	return &result, nil
}

// TransferNft moves a collectible between wallets using the held DEK. Like
// PayCharge, the attempt consumes the DEK.
func (s *PaymentService) TransferNft(ctx context.Context, req *core.NftTransferRequest) (*core.NftTransferResult, error) {
	if req.Chain.EVM() && !common.IsHexAddress(req.ToAddress) {
		return nil, fmt.Errorf("invalid destination address %q for chain %s", req.ToAddress, req.Chain)
	}

	if err := s.auth.EnsureFreshToken(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	dek := s.dek
	s.mu.Unlock()
	if dek.Value == "" {
		return nil, core.ErrMissingWrappedDek
	}
	defer s.ClearWrappedDek()

	body, err := json.Marshal(struct {
		WrappedDek string                   `json:"wrappedDek"`
		Transfer   *core.NftTransferRequest `json:"transfer"`
	}{dek.Value, req})
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Post(ctx, s.cfg.APIURL+"/transferNft", body, s.auth.AuthHeaders())
	if err != nil {
		return nil, fmt.Errorf("nft transfer request failed: %w", err)
	}
	if !resp.Success() {
		return nil, remoteError(resp)
	}

	var envelope nftTransferEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode nft transfer result: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("nft transfer result missing data")
	}

	return envelope.Data, nil
}

// PinCodeURL builds the PIN confirmation page URL for the given target.
func (s *PaymentService) PinCodeURL(target string) (string, error) {
	creds := s.auth.Credentials()
	if creds == nil {
		return "", core.ErrNotAuthenticated
	}
	return fmt.Sprintf(
		"%s/?accessToken=%s&target=%s&redirectUrl=%s",
		s.cfg.PinCodeURL,
		url.QueryEscape(creds.AccessToken),
		url.QueryEscape(target),
		url.QueryEscape(s.cfg.RedirectURL),
	), nil
}

// AddPinCodeURL builds the PIN setup page URL.
func (s *PaymentService) AddPinCodeURL() (string, error) {
	creds := s.auth.Credentials()
	if creds == nil {
		return "", core.ErrNotAuthenticated
	}
	return fmt.Sprintf(
		"%s/add?accessToken=%s&redirectUrl=%s",
		s.cfg.PinCodeURL,
		url.QueryEscape(creds.AccessToken),
		url.QueryEscape(s.cfg.RedirectURL),
	), nil
}

// OpenPinCode drives the browser through the PIN confirmation flow and
// consumes the resulting redirect.
func (s *PaymentService) OpenPinCode(ctx context.Context, target string) error {
	pinURL, err := s.PinCodeURL(target)
	if err != nil {
		return err
	}

	redirect, err := s.browser.OpenAuth(ctx, pinURL, s.cfg.Scheme)
	if err != nil {
		return fmt.Errorf("pin-code browser session failed: %w", err)
	}

	if !s.HandlePinCodeCallback(redirect) {
		return fmt.Errorf("pin-code flow did not produce a dek")
	}
	return nil
}

// HandlePinCodeCallback consumes a redirect from the PIN surface. It
// returns true when the payload carried a DEK share, which is then
// installed for the next payment.
func (s *PaymentService) HandlePinCodeCallback(redirectURL string) bool {
	_, raw, ok := strings.Cut(redirectURL, "data=")
	if !ok {
		return false
	}
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}

	var envelope pinCodeEnvelope
	if err := json.Unmarshal([]byte(decoded), &envelope); err != nil || envelope.Data == nil {
		s.log.Warn("pin-code callback carried an unreadable payload, ignoring")
		return false
	}
	if envelope.Data.Code != "dek" || envelope.Data.Share == "" {
		return false
	}

	s.SetWrappedDek(envelope.Data.Share)
	return true
}
