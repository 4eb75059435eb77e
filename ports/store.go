package ports

import "context"

// Store is the persistent key-value store the SDK keeps session state in.
// Get returns an empty string, not an error, when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
