// Package transport provides the SDK's default HTTP client: a thin wrapper
// around hashicorp/go-retryablehttp that retries connection errors with a
// fixed backoff and hands every HTTP response, success or not, back to the
// caller untouched.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/sphereone/go-sdk/ports"
)

const (
	defaultRetryMax  = 9
	defaultRetryWait = 2 * time.Second
)

// Client implements ports.HTTPClient.
type Client struct {
	rc *retryablehttp.Client
}

// New creates a client with the SDK's retry policy: up to ten attempts,
// two seconds apart, and only for transport-level failures. Non-2xx
// responses are never retried here; that decision belongs to the caller.
func New(logger logrus.FieldLogger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWait
	rc.RetryWaitMax = defaultRetryWait
	rc.Logger = logger
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}

	return &Client{rc: rc}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*ports.Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, "", headers)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*ports.Response, error) {
	return c.do(ctx, http.MethodPost, url, bytes.NewReader(body), "application/json", headers)
}

// PostForm issues a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (*ports.Response, error) {
	return c.do(ctx, http.MethodPost, url, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", headers)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, headers map[string]string) (*ports.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &ports.Response{StatusCode: resp.StatusCode, Body: data}, nil
}
