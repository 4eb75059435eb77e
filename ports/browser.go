package ports

import "context"

// AuthBrowser opens a system browser or platform web-auth session on the
// given URL and resolves with the redirect URL the identity provider (or
// pin-code surface) eventually lands on. It may fail or be cancelled by
// the user. Platform differences live entirely behind this interface.
type AuthBrowser interface {
	OpenAuth(ctx context.Context, authURL, scheme string) (redirectURL string, err error)
}

// EmbeddedWallet controls a pre-mounted embedded wallet surface (an iframe
// or slideout). The surface owns its own session and pushes credentials
// back through the SDK's embedded callback.
type EmbeddedWallet interface {
	Toggle(ctx context.Context) error
	RequestCredentials(ctx context.Context) error
}
