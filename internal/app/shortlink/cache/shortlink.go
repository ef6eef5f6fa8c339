package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/platform/metrics"
)

const notFoundSentinel = "__nil__"

var _ shortlink.URLCache = (*ShortlinkCache)(nil)

// ShortlinkCache 两级缓存：L1 本地 ristretto，L2 Redis。任一层都可以为 nil。
type ShortlinkCache struct {
	client   *redis.Client
	local    *LocalCache // L1 本地缓存
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewShortlinkCache(client *redis.Client, local *LocalCache) *ShortlinkCache {
	return &ShortlinkCache{
		client:   client,
		local:    local,
		ttl:      time.Hour,
		emptyTTL: 30 * time.Second,
	}
}

func key(id int64) string {
	return "su:" + strconv.FormatInt(id, 10)
}

// Get 返回 id 对应的 URL。found=false 表示两级都未命中；命中负缓存时 found=true 且 url 为空。
func (c *ShortlinkCache) Get(ctx context.Context, id int64) (string, bool, error) {
	// L1: 本地缓存
	if c.local != nil {
		if url, ok := c.local.Get(id); ok {
			if url == notFoundSentinel {
				metrics.CacheOperations.WithLabelValues("l1", "hit_negative").Inc()
				return "", true, nil
			}
			metrics.CacheOperations.WithLabelValues("l1", "hit").Inc()
			return url, true, nil
		}
		metrics.CacheOperations.WithLabelValues("l1", "miss").Inc()
	}
	if c.client == nil {
		return "", false, nil
	}

	// L2: Redis
	res, err := c.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		metrics.CacheOperations.WithLabelValues("l2", "miss").Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	// 回填本地缓存
	if res == notFoundSentinel {
		metrics.CacheOperations.WithLabelValues("l2", "hit_negative").Inc()
		if c.local != nil {
			c.local.SetNotFound(id)
		}
		return "", true, nil
	}
	metrics.CacheOperations.WithLabelValues("l2", "hit").Inc()
	if c.local != nil {
		c.local.Set(id, res)
	}
	return res, true, nil
}

func (c *ShortlinkCache) Set(ctx context.Context, id int64, url string) error {
	if c.local != nil {
		c.local.Set(id, url)
	}
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key(id), url, c.ttl).Err()
}

// SetNotFound 用明确哨兵值做"负缓存"，避免缓存穿透。
// 不要用 "" 作为哨兵值：会把"未命中"和"命中空值"混淆。
func (c *ShortlinkCache) SetNotFound(ctx context.Context, id int64) error {
	if c.local != nil {
		c.local.SetNotFound(id)
	}
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key(id), notFoundSentinel, c.emptyTTL).Err()
}

// Close 关闭本地缓存；Redis 客户端由调用方关闭。
func (c *ShortlinkCache) Close() {
	if c.local != nil {
		c.local.Close()
		slog.Info("local cache closed")
	}
}
