package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Remote is the shared cache tier behind the per-request memo. The Redis
// implementation is the production tier; the in-memory implementation turns
// the cache into the process-local variant with identical code paths.
type Remote interface {
	// Get returns the value for key; found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// MGet returns the values for the given keys; missing keys are absent
	// from the result.
	MGet(ctx context.Context, keys []string) (map[string]string, error)
	// SMembers returns the members of the set at key (empty on a miss).
	SMembers(ctx context.Context, key string) ([]string, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Exec applies all batched commands atomically: a concurrent reader
	// observes either none or all of them.
	Exec(ctx context.Context, b *Batch) error
}

type batchOp struct {
	kind    string // "set" | "sadd"
	key     string
	value   string
	members []string
	ttl     time.Duration
}

// Batch is an ordered list of writes applied in one atomic step.
type Batch struct {
	ops []batchOp
}

func (b *Batch) Set(key, value string, ttl time.Duration) {
	b.ops = append(b.ops, batchOp{kind: "set", key: key, value: value, ttl: ttl})
}

func (b *Batch) SAdd(key string, ttl time.Duration, members ...string) {
	b.ops = append(b.ops, batchOp{kind: "sadd", key: key, members: members, ttl: ttl})
}

func (b *Batch) Len() int { return len(b.ops) }

// RedisRemote backs the remote tier with Redis.
type RedisRemote struct {
	client *redis.Client
}

func NewRedisRemote(client *redis.Client) *RedisRemote {
	return &RedisRemote{client: client}
}

func (r *RedisRemote) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisRemote) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // nil for misses
		}
		out[keys[i]] = s
	}
	return out, nil
}

func (r *RedisRemote) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *RedisRemote) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRemote) Exec(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, op := range b.ops {
		switch op.kind {
		case "set":
			pipe.Set(ctx, op.key, op.value, op.ttl)
		case "sadd":
			pipe.SAdd(ctx, op.key, toAnySlice(op.members)...)
			pipe.Expire(ctx, op.key, op.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
