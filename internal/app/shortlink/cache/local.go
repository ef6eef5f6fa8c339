package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LocalCache 基于 ristretto 的本地内存缓存，按记录 id 存 URL。
type LocalCache struct {
	cache    *ristretto.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewLocalCache 创建本地缓存
// maxItems: 最大缓存条目数（建议 10000-100000）
// maxCost: 最大内存占用（字节，建议 16MB-64MB）
func NewLocalCache(maxItems int64, maxCost int64) (*LocalCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10, // 计数器数量，建议为 maxItems 的 10 倍
		MaxCost:     maxCost,
		BufferItems: 64, // 每个 Get 缓冲区大小
	})
	if err != nil {
		return nil, err
	}
	return &LocalCache{
		cache:    cache,
		ttl:      5 * time.Minute,  // 本地缓存 TTL 短一些，保证多实例一致性
		emptyTTL: 10 * time.Second, // 负缓存 TTL
	}, nil
}

func (l *LocalCache) Get(id int64) (string, bool) {
	if v, ok := l.cache.Get(id); ok {
		return v.(string), true
	}
	return "", false
}

func (l *LocalCache) Set(id int64, url string) {
	// cost 按 URL 字节数计，MaxCost 即内存上限
	l.cache.SetWithTTL(id, url, int64(len(url)), l.ttl)
}

func (l *LocalCache) SetNotFound(id int64) {
	l.cache.SetWithTTL(id, notFoundSentinel, int64(len(notFoundSentinel)), l.emptyTTL)
}

func (l *LocalCache) Close() {
	l.cache.Close()
}
