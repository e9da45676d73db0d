package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/behavior-hub/behavior-hub/internal/infrastructure/messaging"
)

var _ messaging.RedisClient = (*PubSubClient)(nil)

// PubSubClient adapts go-redis pub/sub to messaging.RedisClient.
// Messages are published as-is; callers handle serialization.
type PubSubClient struct {
	client *redis.Client

	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	ownsCli bool
}

// NewPubSubClient wraps client. When owns is true, Close also closes client.
func NewPubSubClient(client *redis.Client, owns bool) *PubSubClient {
	return &PubSubClient{client: client, ownsCli: owns}
}

// Publish publishes message to channel.
func (p *PubSubClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if channel == "" {
		return ErrCacheKeyEmpty
	}
	return p.client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels and forwards messages until ctx is done
// or the client is closed.
func (p *PubSubClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("redis pubsub client is closed")
	}
	sub := p.client.Subscribe(ctx, channels...)
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: subscribe: %v", ErrCacheConnection, err)
	}

	out := make(chan messaging.RedisMessage, 64)
	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes every subscription.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, sub := range p.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.ownsCli {
		if err := p.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
