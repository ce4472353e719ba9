package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sekkot/portal/internal/model"
)

// RedisBroker delivers across processes over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisClient accepts a redis:// URL or a bare host:port.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channel(userID string) string {
	return "notifications:" + userID
}

func (b *RedisBroker) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	err = b.client.Publish(ctx, channel(n.UserID), payload).Err()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel(userID))

	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	sub := newSubscription(userID, func() error {
		close(stop)
		err := pubsub.Close()
		<-done
		return err
	})

	go func() {
		defer close(done)
		defer close(sub.ch)

		msgs := pubsub.Channel()
		for {
			select {
			case <-stop:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n model.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					slog.Warn("invalid realtime payload", "error", err, "channel", msg.Channel)
					continue
				}
				select {
				case sub.ch <- &n:
				case <-stop:
					return
				}
			}
		}
	}()

	return sub, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
