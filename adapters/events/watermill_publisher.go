package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
)

// Topics the SDK publishes on. Subscribers pick the ones they care about;
// profile topics fire independently and in no particular order.
const (
	TopicUserLoaded     = "sphereone.user.loaded"
	TopicWalletsLoaded  = "sphereone.wallets.loaded"
	TopicBalancesLoaded = "sphereone.balances.loaded"
	TopicNftsLoaded     = "sphereone.nfts.loaded"
	TopicLogout         = "sphereone.logout"
)

// WatermillPublisher implements the EventPublisher interface over any
// Watermill message.Publisher (gochannel in-process, Redis streams, ...).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishUserLoaded publishes a user snapshot.
func (p *WatermillPublisher) PublishUserLoaded(ctx context.Context, user *core.User) error {
	return p.publish(TopicUserLoaded, user)
}

// PublishWalletsLoaded publishes a wallets snapshot.
func (p *WatermillPublisher) PublishWalletsLoaded(ctx context.Context, wallets []core.Wallet) error {
	return p.publish(TopicWalletsLoaded, wallets)
}

// PublishBalancesLoaded publishes a balances snapshot.
func (p *WatermillPublisher) PublishBalancesLoaded(ctx context.Context, balances []core.Balance) error {
	return p.publish(TopicBalancesLoaded, balances)
}

// PublishNftsLoaded publishes an NFT snapshot.
func (p *WatermillPublisher) PublishNftsLoaded(ctx context.Context, nfts []core.Nft) error {
	return p.publish(TopicNftsLoaded, nfts)
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context) error {
	return p.publish(TopicLogout, struct{}{})
}

func (p *WatermillPublisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Discard is an EventPublisher that drops everything. It is the default
// when the host application does not wire a message bus.
type Discard struct{}

func (Discard) PublishUserLoaded(context.Context, *core.User) error         { return nil }
func (Discard) PublishWalletsLoaded(context.Context, []core.Wallet) error   { return nil }
func (Discard) PublishBalancesLoaded(context.Context, []core.Balance) error { return nil }
func (Discard) PublishNftsLoaded(context.Context, []core.Nft) error         { return nil }
func (Discard) PublishLogout(context.Context) error                         { return nil }
