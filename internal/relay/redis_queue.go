package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"prism/internal/domain"
)

// mailboxKey is the Redis list holding one mailbox.
const mailboxKey = "prism:mailbox:%s"

// RedisQueue keeps each mailbox in a Redis list, oldest at the head.
type RedisQueue struct {
	rdb *redis.Client
	max int64
}

// NewRedisQueue returns a queue backed by rdb holding at most max envelopes
// per mailbox; max <= 0 uses DefaultMailboxLimit.
func NewRedisQueue(rdb *redis.Client, max int) *RedisQueue {
	if max <= 0 {
		max = DefaultMailboxLimit
	}
	return &RedisQueue{rdb: rdb, max: int64(max)}
}

// pushScript appends ARGV[1] unless the list already holds ARGV[2] entries.
// It returns the new length, or -1 when the mailbox is full.
var pushScript = redis.NewScript(`
if redis.call("LLEN", KEYS[1]) >= tonumber(ARGV[2]) then
	return -1
end
return redis.call("RPUSH", KEYS[1], ARGV[1])
`)

func (q *RedisQueue) Push(ctx context.Context, box string, env domain.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	n, err := pushScript.Run(ctx, q.rdb, []string{fmt.Sprintf(mailboxKey, box)}, b, q.max).Int64()
	if err != nil {
		return err
	}
	if n < 0 {
		return ErrMailboxFull
	}
	return nil
}

func (q *RedisQueue) Peek(ctx context.Context, box string, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := q.rdb.LRange(ctx, fmt.Sprintf(mailboxKey, box), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Envelope, 0, len(raw))
	for _, r := range raw {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(r), &env); err != nil {
			return nil, fmt.Errorf("relay: corrupt queued envelope in %s: %w", box, err)
		}
		out = append(out, env)
	}
	return out, nil
}

func (q *RedisQueue) Drop(ctx context.Context, box string, count int) error {
	if count <= 0 {
		return nil
	}
	return q.rdb.LTrim(ctx, fmt.Sprintf(mailboxKey, box), int64(count), -1).Err()
}

// Close releases the Redis connection pool.
func (q *RedisQueue) Close() error { return q.rdb.Close() }

var _ Queue = (*RedisQueue)(nil)
