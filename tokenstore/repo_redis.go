package tokenstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ Store = (*RedisStore)(nil)

const defaultRedisPrefix = "console:session:"

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("[tokenstore Connect] parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[tokenstore Connect] ping: %w", err)
	}
	return client, nil
}

// RedisStore keeps one client's keys in Redis under
// console:session:<clientID>:<key>, each with the same TTL.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, clientID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: defaultRedisPrefix + clientID + ":",
		ttl:    ttl,
	}
}

// NewRedisProvider returns a Provider backed by a shared Redis client.
func NewRedisProvider(client redis.Cmdable, ttl time.Duration) Provider {
	return func(clientID string) Store {
		return NewRedisStore(client, clientID, ttl)
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Save(ctx context.Context, session sessions.Session) error {
	values, err := encodeRecord(session)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range Keys {
			if values[k] == "" {
				pipe.Del(ctx, s.key(k))
				continue
			}
			pipe.Set(ctx, s.key(k), values[k], s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[RedisStore Save] %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = s.key(k)
	}

	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Record{}, fmt.Errorf("[RedisStore Load] %w", err)
	}

	values := make(map[string]string, len(Keys))
	for i, k := range Keys {
		if v, ok := raw[i].(string); ok {
			values[k] = v
		}
	}
	return decodeRecord(values)
}

func (s *RedisStore) Clear(ctx context.Context) {
	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = s.key(k)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.Err(err).Str("prefix", s.prefix).Msg("Failed to clear stored session")
	}
}
