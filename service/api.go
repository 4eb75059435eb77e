package service

import (
	"encoding/json"
	"strings"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
)

// Backend responses wrap their payload in {"data": ..., "error": ...}.
// These envelope types decode each endpoint's shape up front so the rest
// of the code never probes untyped JSON.

type credentialsEnvelope struct {
	Data  *core.Credentials `json:"data"`
	Error string            `json:"error"`
}

type userEnvelope struct {
	Data  *core.User `json:"data"`
	Error string     `json:"error"`
}

type walletsEnvelope struct {
	Data  []core.Wallet `json:"data"`
	Error string        `json:"error"`
}

type balancesEnvelope struct {
	Data struct {
		Total    string         `json:"total"`
		Balances []core.Balance `json:"balances"`
	} `json:"data"`
	Error string `json:"error"`
}

type nftsEnvelope struct {
	Data  []core.Nft `json:"data"`
	Error string     `json:"error"`
}

type chargeEnvelope struct {
	Data  *core.Charge `json:"data"`
	Error string       `json:"error"`
}

type routeEstimateEnvelope struct {
	Data  *core.RouteEstimate `json:"data"`
	Error *core.ErrorPayload  `json:"error"`
}

type dekEnvelope struct {
	Data  string `json:"data"`
	Error string `json:"error"`
}

type nftTransferEnvelope struct {
	Data  *core.NftTransferResult `json:"data"`
	Error string                  `json:"error"`
}

// onrampEnvelope is the error shape of the pay and estimation endpoints: a
// structured code/message plus, for funds shortfalls, a link to an on-ramp.
type onrampEnvelope struct {
	Error *core.ErrorPayload `json:"error"`
	Data  *struct {
		Status     core.TxStatus `json:"status"`
		OnrampLink string        `json:"onrampLink"`
	} `json:"data"`
}

func (e *onrampEnvelope) onrampLink() string {
	if e.Data == nil {
		return ""
	}
	return e.Data.OnrampLink
}

// pinCodeEnvelope is the payload the pin-code surface appends to its
// redirect URL as data=.
type pinCodeEnvelope struct {
	Data *struct {
		Code   string `json:"code"`
		Share  string `json:"share"`
		Status string `json:"status"`
	} `json:"data"`
	Error string `json:"error"`
}

// remoteError builds a RemoteError from a non-2xx response, preferring the
// server's envelope error string over the raw body.
func remoteError(resp *ports.Response) *core.RemoteError {
	msg := strings.TrimSpace(string(resp.Body))

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error != "" {
		msg = envelope.Error
	}

	return &core.RemoteError{StatusCode: resp.StatusCode, Message: msg}
}
