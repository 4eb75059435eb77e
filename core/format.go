package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBatch turns a raw route batch into its display-ready projection.
// The batch type defaults to TRANSFER and is overridden by the last action
// carrying swap or bridge data; the loop deliberately has no early exit so
// the final matching action decides.
func FormatBatch(description string, actions []RouteAction) (FormattedBatch, error) {
	batch := FormattedBatch{
		Type:       BatchTransfer,
		Title:      description,
		Operations: []string{},
	}

	for _, action := range actions {
		switch {
		case action.TransferData != nil:
			d := action.TransferData
			amount, err := FormatHexAmount(d.FromAmount.Hex, d.FromToken.Decimals)
			if err != nil {
				return FormattedBatch{}, fmt.Errorf("transfer amount: %w", err)
			}
			batch.Type = BatchTransfer
			batch.Operations = append(batch.Operations, fmt.Sprintf(
				"Transfer %s %s in %s", amount, d.FromToken.Symbol, d.FromChain))

		case action.SwapData != nil:
			d := action.SwapData
			fromAmount, err := FormatHexAmount(d.FromAmount.Hex, d.FromToken.Decimals)
			if err != nil {
				return FormattedBatch{}, fmt.Errorf("swap from amount: %w", err)
			}
			toAmount, err := FormatHexAmount(d.ToAmount.Hex, d.ToToken.Decimals)
			if err != nil {
				return FormattedBatch{}, fmt.Errorf("swap to amount: %w", err)
			}
			batch.Type = BatchSwap
			batch.Operations = append(batch.Operations, fmt.Sprintf(
				"Swap %s %s to %s %s in %s",
				fromAmount, d.FromToken.Symbol, toAmount, d.ToToken.Symbol, d.FromChain))

		case action.BridgeData != nil:
			q := action.BridgeData.Quote
			fromAmount, err := FormatHexAmount(q.FromAmount.Hex, q.FromToken.Decimals)
			if err != nil {
				return FormattedBatch{}, fmt.Errorf("bridge from amount: %w", err)
			}
			toAmount, err := FormatHexAmount(q.ToAmount.Hex, q.ToToken.Decimals)
			if err != nil {
				return FormattedBatch{}, fmt.Errorf("bridge to amount: %w", err)
			}
			batch.Type = BatchBridge
			batch.Operations = append(batch.Operations, fmt.Sprintf(
				"Bridge %s %s in %s to %s %s in %s",
				fromAmount, q.FromToken.Symbol, q.FromToken.Chain,
				toAmount, q.ToToken.Symbol, q.ToToken.Chain))
		}
	}

	return batch, nil
}

// FormatHexAmount interprets a hexadecimal integer string (with or without
// a 0x prefix) as an arbitrary-precision integer, divides it by 10^decimals
// using decimal arithmetic and renders it without trailing zeros.
func FormatHexAmount(hex string, decimals int) (string, error) {
	s := hex
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return "", fmt.Errorf("empty hex amount %q", hex)
	}
	if strings.ContainsAny(s, "+-_") {
		// big.Int accepts signs and digit separators; hex amounts do not.
		return "", fmt.Errorf("invalid hex amount %q", hex)
	}

	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return "", fmt.Errorf("invalid hex amount %q", hex)
	}

	return decimal.NewFromBigInt(n, -int32(decimals)).String(), nil
}
