// Package cache stores query embeddings so a repeated retrieval skips the
// embedding call. Entries are keyed by the caller; see rag.CacheKey.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryCache struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	values  []float32
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.data, key)
		return nil, false, nil
	}
	return append([]float32(nil), e.values...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, values []float32, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{values: append([]float32(nil), values...), expires: c.now().Add(ttl)}
	return nil
}

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "embedding:"}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	values, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return values, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, values []float32, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, encode(values), ttl).Err()
}

// encode packs values as little-endian float32s.
func encode(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errors.New("cache: corrupt embedding entry")
	}
	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return values, nil
}
