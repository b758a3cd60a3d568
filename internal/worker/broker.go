package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoJob is returned by Pop when the wait timed out with every queue empty.
var ErrNoJob = errors.New("no job")

// Broker moves raw jobs between producers and the pool.
type Broker interface {
	Push(ctx context.Context, queue string, raw []byte) error
	// Pop blocks up to timeout for the next job on any of the queues.
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (queue string, raw []byte, err error)
	DeadLetter(ctx context.Context, queue string, raw []byte) error
}

// RedisBroker keeps one Redis list per queue. LPUSH on enqueue and BRPOP on
// dequeue make each list FIFO.
type RedisBroker struct{ rdb *redis.Client }

func NewRedisBroker(rdb *redis.Client) *RedisBroker { return &RedisBroker{rdb: rdb} }

func (b *RedisBroker) Push(ctx context.Context, queue string, raw []byte) error {
	return b.rdb.LPush(ctx, queue, raw).Err()
}

func (b *RedisBroker) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	res, err := b.rdb.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, ErrNoJob
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) < 2 {
		return "", nil, ErrNoJob
	}
	return res[0], []byte(res[1]), nil
}

func (b *RedisBroker) DeadLetter(ctx context.Context, queue string, raw []byte) error {
	return b.rdb.LPush(ctx, DLQPrefix+queue, raw).Err()
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func (b *RedisBroker) DLQLength(ctx context.Context, queue string) (int64, error) {
	return b.rdb.LLen(ctx, DLQPrefix+queue).Result()
}
