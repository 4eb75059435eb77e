package ports

import (
	"context"

	"github.com/sphereone/go-sdk/core"
)

// EventPublisher broadcasts profile and session changes to subscribers.
// Each profile fetch publishes independently; consumers must tolerate
// partial, out-of-order population of the snapshot.
type EventPublisher interface {
	PublishUserLoaded(ctx context.Context, user *core.User) error
	PublishWalletsLoaded(ctx context.Context, wallets []core.Wallet) error
	PublishBalancesLoaded(ctx context.Context, balances []core.Balance) error
	PublishNftsLoaded(ctx context.Context, nfts []core.Nft) error
	PublishLogout(ctx context.Context) error
}
