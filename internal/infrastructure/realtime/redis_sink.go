package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"clinic-backend/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Channel patterns relayed between instances
var bridgePatterns = []string{"provider:*", "patient:*"}

// RedisSink publishes events on Redis channels named after the notification channel
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

// Deliver implements service.Sink
func (s *RedisSink) Deliver(ctx context.Context, msg service.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, msg.Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", msg.Channel, err)
	}
	return nil
}

// RedisBridge relays events published by any instance into the local hub
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	log    *logrus.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
	once   sync.Once
}

func NewRedisBridge(client *redis.Client, hub *Hub, log *logrus.Logger) *RedisBridge {
	return &RedisBridge{client: client, hub: hub, log: log}
}

// Start subscribes and begins relaying. The subscription is confirmed before returning.
func (b *RedisBridge) Start(ctx context.Context) error {
	b.pubsub = b.client.PSubscribe(ctx, bridgePatterns...)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	b.wg.Add(1)
	go b.relay()

	b.log.Info("Redis notification bridge started")
	return nil
}

func (b *RedisBridge) relay() {
	defer b.wg.Done()

	for msg := range b.pubsub.Channel() {
		b.hub.Broadcast(msg.Channel, []byte(msg.Payload))
	}
}

// Stop closes the subscription and waits for the relay goroutine
func (b *RedisBridge) Stop() {
	b.once.Do(func() {
		if b.pubsub != nil {
			_ = b.pubsub.Close()
		}
		b.wg.Wait()
		b.log.Info("Redis notification bridge stopped")
	})
}
