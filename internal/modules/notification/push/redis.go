package push

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/boardpush/internal/entity"
	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 16

// RedisChannel fans notifications out through redis pub/sub so that any
// instance holding the user's websocket can forward them.
type RedisChannel struct {
	client *redis.Client
}

func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

func (c *RedisChannel) SendToUser(ctx context.Context, address string, payload *entity.Notification) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification %d: %w", payload.ID, err)
	}

	receivers, err := c.client.Publish(ctx, Topic(address), data).Result()
	if err != nil {
		return err
	}
	if receivers == 0 {
		return ErrNoSubscriber
	}
	return nil
}

func (c *RedisChannel) Subscribe(ctx context.Context, address string) (<-chan []byte, func(), error) {
	pubsub := c.client.Subscribe(ctx, Topic(address))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", Topic(address), err)
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				// slow consumer, drop
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }, nil
}
