package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/platform/config"
)

const defaultRedisPrefix = "medscan:analysis:"

// RedisStore keeps one JSON value per result under prefix+id. Expiry is left
// to redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects with cfg and pings the server.
func NewRedisStore(ctx context.Context, cfg config.RedisStore, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errStorage("store.redis", "ping "+cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client; Close closes it.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, result *analysis.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errStorage("store.save", "marshal result", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(result.ID), data, ttl).Err(); err != nil {
		return errStorage("store.save", "set "+result.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*analysis.AnalysisResult, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNotFound("store.get", id)
	}
	if err != nil {
		return nil, errStorage("store.get", "get "+id, err)
	}

	var res analysis.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errStorage("store.get", "corrupt payload for "+id, err)
	}
	return &res, nil
}

func (r *RedisStore) keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, errStorage("store.list", "scan keys", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (r *RedisStore) List(ctx context.Context) ([]*analysis.AnalysisResult, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*analysis.AnalysisResult, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errStorage("store.list", "mget", err)
	}
	for i, v := range values {
		// expired between SCAN and MGET
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var res analysis.AnalysisResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, errStorage("store.list", "corrupt payload at "+keys[i], err)
		}
		out = append(out, &res)
	}

	sortNewestFirst(out)
	return out, nil
}

func (r *RedisStore) Remove(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return errStorage("store.remove", "del "+id, err)
	}
	if n == 0 {
		return errNotFound("store.remove", id)
	}
	return nil
}

// CleanupExpired is a no-op; redis expires keys itself.
func (r *RedisStore) CleanupExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *RedisStore) Stats(ctx context.Context) (analysis.Stats, error) {
	list, err := r.List(ctx)
	if err != nil {
		return analysis.Stats{}, err
	}
	return analysis.Summarize(list), nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
