package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// once 保证指标只注册一次：重复注册同名指标会 panic。
	once sync.Once

	// HTTPRequestsTotal counts finished requests.
	//
	// route is the route pattern (/api/v1/urls/:token), never the raw path, to keep label
	// cardinality bounded.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "HTTP请求的总数",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds 请求耗时分布，用于计算 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// CacheOperations counts cache lookups by layer (l1, l2) and result
	// (hit, hit_negative, miss).
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_cache_operations_total",
			Help: "Short URL cache lookups by layer and result.",
		},
		[]string{"layer", "result"},
	)

	ShortlinkRedirects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Successful short URL redirects.",
		},
	)

	ShortlinksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_created_total",
			Help: "Short URLs created (existing URLs are not counted).",
		},
	)

	// TokenRejections counts client tokens that could not name a record under the
	// configured alphabet, by reason (invalid_token, overflow, non_canonical, filtered).
	TokenRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_token_rejections_total",
			Help: "Tokens answered with not found before reaching the store.",
		},
		[]string{"reason"},
	)

	// BloomFilterItems 是过滤器里的近似 id 数，每次 WarmUp 后更新。
	BloomFilterItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortlink_bloom_filter_items",
			Help: "Approximate number of ids in the existence filter.",
		},
	)

	ClickEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_click_events_dropped_total",
			Help: "Click events dropped because the stats buffer was full or closed.",
		},
	)
)

// Init 注册指标：只允许注册一次（否则 panic: duplicate metrics collector registration）
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			CacheOperations,
			ShortlinkRedirects,
			ShortlinksCreated,
			TokenRejections,
			BloomFilterItems,
			ClickEventsDropped,
		)
	})
}
