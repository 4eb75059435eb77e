package ports

import (
	"context"
	"net/url"
)

// Response is the outcome of an HTTP exchange with the backend or the
// identity provider.
type Response struct {
	StatusCode int
	Body       []byte
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClient issues requests on behalf of the SDK. Implementations may
// retry connection errors internally; business-level failures (non-2xx)
// are returned as a Response, never retried.
type HTTPClient interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
	Post(ctx context.Context, url string, body []byte, headers map[string]string) (*Response, error)
	PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (*Response, error)
}
