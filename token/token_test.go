package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphereone/go-sdk/core"
)

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return fmt.Sprintf("%s.%s.%s",
		Base64URLEncode(header),
		Base64URLEncode(payload),
		Base64URLEncode([]byte("signature")),
	)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := makeToken(t, map[string]any{"sub": "user", "exp": exp.Unix()})

	got, err := ExpiresAt(tok)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestExpiresAt_Malformed(t *testing.T) {
	cases := []struct {
		name string
		tok  string
	}{
		{"empty", ""},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"payload not base64", "header.!!!!.sig"},
		{"payload not json", makeTwoPartGarbage()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpiresAt(tc.tok)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrMalformedToken)
		})
	}
}

func makeTwoPartGarbage() string {
	return fmt.Sprintf("%s.%s.%s",
		Base64URLEncode([]byte("{}")),
		Base64URLEncode([]byte("not json")),
		Base64URLEncode([]byte("sig")),
	)
}

func TestExpiresAt_NoExpClaim(t *testing.T) {
	tok := makeToken(t, map[string]any{"sub": "user"})

	_, err := ExpiresAt(tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestExpired(t *testing.T) {
	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := makeToken(t, map[string]any{"exp": exp.Unix()})

	expired, err := Expired(tok, exp.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = Expired(tok, exp.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestValid(t *testing.T) {
	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := makeToken(t, map[string]any{"exp": exp.Unix()})

	assert.True(t, Valid(tok, exp.Add(-time.Minute)))
	assert.False(t, Valid(tok, exp.Add(time.Minute)))
	assert.False(t, Valid("", time.Now()))
	assert.False(t, Valid("garbage", time.Now()))
}

func TestBase64URL_RoundTrip(t *testing.T) {
	for size := 0; size <= 256; size++ {
		input := bytes.Repeat([]byte{0xfb}, size)
		for i := range input {
			input[i] = byte(i * 7)
		}

		encoded := Base64URLEncode(input)
		assert.NotContains(t, encoded, "=")
		assert.NotContains(t, encoded, "+")
		assert.NotContains(t, encoded, "/")

		decoded, err := Base64URLDecode(encoded)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, input, decoded, "size %d", size)
	}
}

func TestBase64URLDecode_BadPadding(t *testing.T) {
	// A length of 4n+1 can never be valid base64.
	_, err := Base64URLDecode("abcde")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}
