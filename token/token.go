// Package token decodes bearer-token expiry without verifying signatures.
// The SDK never validates tokens cryptographically; that is the backend's
// job. It only needs the exp claim to know when to refresh.
package token

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sphereone/go-sdk/core"
)

var parser = jwt.NewParser()

// ExpiresAt decodes the exp claim of a JWT without signature verification.
// It fails with core.ErrMalformedToken unless the token has exactly three
// dot-delimited base64url segments and a payload with an integer exp.
func ExpiresAt(tok string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: payload has no exp claim", core.ErrMalformedToken)
	}

	return exp.Time, nil
}

// Expired reports whether the token's expiry is strictly before now.
func Expired(tok string, now time.Time) (bool, error) {
	exp, err := ExpiresAt(tok)
	if err != nil {
		return false, err
	}
	return exp.Before(now), nil
}

// Valid reports whether the token exists and has not expired. Malformed
// tokens are never valid.
func Valid(tok string, now time.Time) bool {
	if tok == "" {
		return false
	}
	expired, err := Expired(tok, now)
	return err == nil && !expired
}

// Base64URLEncode encodes bytes the way JWT segments are encoded: standard
// base64 with padding stripped and the URL-safe alphabet.
func Base64URLEncode(input []byte) string {
	out := base64.StdEncoding.EncodeToString(input)
	out = strings.TrimRight(out, "=")
	out = strings.ReplaceAll(out, "+", "-")
	return strings.ReplaceAll(out, "/", "_")
}

// Base64URLDecode reverses Base64URLEncode: the URL-safe characters are
// mapped back, then the input is padded to a multiple of four. A length
// that would need a single pad character is not valid base64.
func Base64URLDecode(input string) ([]byte, error) {
	out := strings.ReplaceAll(input, "-", "+")
	out = strings.ReplaceAll(out, "_", "/")

	switch len(out) % 4 {
	case 0:
	case 2:
		out += "=="
	case 3:
		out += "="
	default:
		return nil, fmt.Errorf("%w: illegal base64url length %d", core.ErrMalformedToken, len(input))
	}

	decoded, err := base64.StdEncoding.DecodeString(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
	return decoded, nil
}
