package browser

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoopback(t *testing.T) {
	log := logrus.New()

	l, err := NewLoopback("http://localhost:3000/callback", log)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", l.addr)
	assert.Equal(t, "/callback", l.path)

	_, err = NewLoopback("http://127.0.0.1:8080/auth/done", log)
	assert.NoError(t, err)
}

func TestNewLoopback_Rejections(t *testing.T) {
	log := logrus.New()

	cases := []string{
		"https://localhost:3000/callback",
		"http://example.com/callback",
		"sphereone://callback",
		"://bad",
	}
	for _, redirectURL := range cases {
		_, err := NewLoopback(redirectURL, log)
		assert.Error(t, err, "url %q", redirectURL)
	}
}
