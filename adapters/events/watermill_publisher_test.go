package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphereone/go-sdk/core"
)

func TestWatermillPublisher(t *testing.T) {
	ctx := context.Background()
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	messages, err := pubsub.Subscribe(ctx, TopicUserLoaded)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)
	require.NoError(t, publisher.PublishUserLoaded(ctx, &core.User{UID: "u1", Name: "Ada"}))

	select {
	case msg := <-messages:
		var user core.User
		require.NoError(t, json.Unmarshal(msg.Payload, &user))
		assert.Equal(t, "u1", user.UID)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestWatermillPublisher_Logout(t *testing.T) {
	ctx := context.Background()
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	messages, err := pubsub.Subscribe(ctx, TopicLogout)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)
	require.NoError(t, publisher.PublishLogout(ctx))

	select {
	case <-messages:
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}
