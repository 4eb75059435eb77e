// Package browser implements the AuthBrowser port for desktop hosts: it
// opens the system browser on the authorization URL and runs a loopback
// HTTP listener that captures the redirect callback.
package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Loopback waits for the identity provider to redirect back to a
// localhost URL. The redirect URL registered with the provider must point
// at the loopback address this adapter listens on.
type Loopback struct {
	addr string
	path string
	log  logrus.FieldLogger

	// OpenURL launches the system browser. Overridable for tests and for
	// hosts with their own window management.
	OpenURL func(url string) error
}

// NewLoopback creates a launcher from the configured redirect URL, which
// must be an http URL on a loopback host.
func NewLoopback(redirectURL string, logger logrus.FieldLogger) (*Loopback, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("loopback redirect URL must be http, got %q", redirectURL)
	}

	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return nil, fmt.Errorf("loopback redirect URL must point at localhost, got %q", redirectURL)
	}

	return &Loopback{
		addr:    u.Host,
		path:    u.Path,
		log:     logger,
		OpenURL: openSystemBrowser,
	}, nil
}

// OpenAuth opens the browser and blocks until the provider redirects back
// to the loopback listener, the context is cancelled, or the browser could
// not be launched. The scheme argument is unused here; custom-scheme
// redirects are a mobile concern handled by other AuthBrowser adapters.
func (l *Loopback) OpenAuth(ctx context.Context, authURL, scheme string) (string, error) {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}

	result := make(chan string, 1)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.GET(l.path, func(c *gin.Context) {
		c.String(http.StatusOK, "Login complete. You can close this window.")
		select {
		case result <- "http://" + c.Request.Host + c.Request.RequestURI:
		default:
		}
	})

	srv := &http.Server{Handler: engine}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.log.WithError(err).Error("loopback listener failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := l.OpenURL(authURL); err != nil {
		return "", fmt.Errorf("failed to open browser: %w", err)
	}

	select {
	case redirectURL := <-result:
		return redirectURL, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func openSystemBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
