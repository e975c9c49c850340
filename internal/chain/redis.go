package chain

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// stageQueueKey is the Redis list holding pending stage messages.
const stageQueueKey = "mint:stage_queue"

// RedisScheduler is a Redis-list-backed FIFO scheduler. Pending stage
// messages survive a process restart, so a chain interrupted between
// stages resumes where its last committed step left it.
type RedisScheduler struct {
	rdb *redis.Client
}

// NewRedisScheduler creates a Redis-backed scheduler.
func NewRedisScheduler(rdb *redis.Client) *RedisScheduler {
	return &RedisScheduler{rdb: rdb}
}

func (s *RedisScheduler) Enqueue(ctx context.Context, msg StageMessage) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, stageQueueKey, data).Err()
}

func (s *RedisScheduler) Dequeue(ctx context.Context) (*StageMessage, error) {
	for {
		res, err := s.rdb.BLPop(ctx, 5*time.Second, stageQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			// Poll timeout; re-check ctx and wait again.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		// BLPop returns [key, value].
		return decodeMessage([]byte(res[1]))
	}
}
