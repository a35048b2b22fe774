// Package pubsub carries generation results between instances over Redis
// pub/sub channels named after their topics.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/ws"
	"go.uber.org/zap"
)

// TopicPattern matches every recipe topic channel.
const TopicPattern = models.TopicPrefix + "*"

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("connected to redis", zap.String("addr", opts.Addr))
	return client, nil
}

// RedisBroadcaster publishes generation results on the Redis channel named
// after the topic. Delivery is at most once.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster creates a RedisBroadcaster.
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

// Publish encodes recipes in the subscriber envelope and publishes it.
func (b *RedisBroadcaster) Publish(ctx context.Context, topic string, recipes []models.RecipeSummary) error {
	data, err := ws.MarshalEnvelope(topic, recipes)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Deliverer accepts encoded envelopes for local subscribers.
type Deliverer interface {
	Deliver(ctx context.Context, topic string, data []byte) error
}

// Relay forwards every message on recipe topic channels into a local hub.
type Relay struct {
	client *redis.Client
	target Deliverer
	done   chan struct{}
}

// NewRelay creates a Relay feeding target.
func NewRelay(client *redis.Client, target Deliverer) *Relay {
	return &Relay{
		client: client,
		target: target,
		done:   make(chan struct{}),
	}
}

// Start subscribes to TopicPattern and returns once the subscription is
// confirmed. Messages are forwarded in the background until ctx is done.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, TopicPattern)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", TopicPattern, err)
	}

	go r.forward(ctx, sub)
	return nil
}

// Done is closed once the relay stopped forwarding.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

func (r *Relay) forward(ctx context.Context, sub *redis.PubSub) {
	defer close(r.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := r.target.Deliver(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, ws.ErrHubStopped) {
					return
				}
				logger.ForTopic(msg.Channel).Warn("failed to relay broadcast", zap.Error(err))
			}
		}
	}
}
