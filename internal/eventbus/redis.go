package eventbus

import (
	"context"
	"errors"
	"time"

	"anoa.com/boardpush/internal/event"
	"github.com/redis/go-redis/v9"
)

const defaultBlockTimeout = 5 * time.Second

// RedisQueue is a list-backed queue: producers RPUSH, consumers BLPOP.
// An envelope is removed when popped, so Ack is a no-op.
type RedisQueue struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:       client,
		key:          key,
		blockTimeout: defaultBlockTimeout,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, ev event.Event) error {
	data, err := event.Encode(ev)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) Fetch(ctx context.Context) (Message, error) {
	for {
		// BLPOP returns redis.Nil on timeout; loop so a cancelled ctx is
		// noticed within blockTimeout.
		res, err := q.client.BLPop(ctx, q.blockTimeout, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return Message{}, err
		}

		// res[0] is key, res[1] is value
		if len(res) < 2 {
			continue
		}
		return Message{Value: []byte(res[1])}, nil
	}
}

// Close leaves the shared client open.
func (q *RedisQueue) Close() error {
	return nil
}
