// Command sphereone is a demo client: it logs in through the system
// browser, prints profile events as they arrive, and waits for an
// interrupt.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	sphereone "github.com/sphereone/go-sdk"
	"github.com/sphereone/go-sdk/adapters/events"
	"github.com/sphereone/go-sdk/adapters/store"
	"github.com/sphereone/go-sdk/ports"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var cfg sphereone.Config
	if err := env.Parse(&cfg); err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wmLogger := watermill.NewStdLogger(false, false)

	var (
		kv        ports.Store
		publisher message.Publisher
	)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to parse REDIS_URL")
		}
		client := redis.NewClient(opts)

		pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
		if err != nil {
			log.WithError(err).Fatal("failed to create redis publisher")
		}
		kv = store.NewRedisStore(client)
		publisher = pub
	} else {
		pubsub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		kv = store.NewMemoryStore()
		publisher = pubsub
		go printEvents(ctx, log, pubsub)
	}

	manager, err := sphereone.New(&cfg, sphereone.Options{
		Store:  kv,
		Events: events.NewWatermillPublisher(publisher),
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create manager")
	}
	defer manager.Close()

	if _, err := manager.Auth.RestoreSession(ctx); err != nil {
		log.WithError(err).Warn("failed to restore previous session")
	}
	if !manager.Auth.IsAuthenticated() {
		if err := manager.Login(ctx); err != nil {
			log.WithError(err).Fatal("login failed")
		}
	}

	log.WithField("state", manager.Auth.State()).Info("session established")
	<-ctx.Done()
}

// printEvents mirrors every profile event to the log so the demo shows
// the snapshot filling in.
func printEvents(ctx context.Context, log logrus.FieldLogger, pubsub *gochannel.GoChannel) {
	topics := []string{
		events.TopicUserLoaded,
		events.TopicWalletsLoaded,
		events.TopicBalancesLoaded,
		events.TopicNftsLoaded,
		events.TopicLogout,
	}

	for _, topic := range topics {
		messages, err := pubsub.Subscribe(ctx, topic)
		if err != nil {
			log.WithError(err).WithField("topic", topic).Warn("failed to subscribe")
			continue
		}
		go func(topic string, messages <-chan *message.Message) {
			for msg := range messages {
				log.WithField("topic", topic).Infof("event: %s", json.RawMessage(msg.Payload))
				msg.Ack()
			}
		}(topic, messages)
	}
}
