package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"urlshortener.local/gee"
	"urlshortener.local/gee/middleware"
	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/basex"
	slcache "urlshortener.local/internal/app/shortlink/cache"
	shortlinkhttpapi "urlshortener.local/internal/app/shortlink/httpapi"
	"urlshortener.local/internal/app/shortlink/stats"
	platformcache "urlshortener.local/internal/platform/cache"
	"urlshortener.local/internal/platform/config"
	"urlshortener.local/internal/platform/httpmiddleware"
	"urlshortener.local/internal/platform/httpserver"
	"urlshortener.local/internal/platform/metrics"
	"urlshortener.local/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	setupLogger(cfg)

	// 符号池在启动时确定，之后不允许变更：换池会让已发出的 token 全部失效
	pool, err := basex.BuildPool(cfg.Alphabet, cfg.AlphabetExclude)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("symbol pool ready", "radix", pool.Len())

	metrics.Init()

	if cfg.TracingEnabled {
		shutdown, err := trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.OtlpServiceName, version)
		if err != nil {
			slog.Error("trace init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error("trace shutdown failed", "err", err)
				}
			}()
		}
	} else {
		slog.Warn("Tracing disabled by config", "TRACING_ENABLED", false)
	}

	// 存储
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := openStore(startCtx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// 缓存：L1 ristretto + L2 Redis，任一层可关
	var opts []shortlink.Option
	var localCache *slcache.LocalCache
	if cfg.LocalCacheItems > 0 {
		localCache, err = slcache.NewLocalCache(cfg.LocalCacheItems, cfg.LocalCacheBytes)
		if err != nil {
			log.Fatal(err)
		}
	}
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = platformcache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal(err)
		}
		defer redisClient.Close()
	} else {
		slog.Warn("Redis disabled by config", "REDIS_ENABLED", false)
	}
	if localCache != nil || redisClient != nil {
		slCache := slcache.NewShortlinkCache(redisClient, localCache)
		defer slCache.Close()
		opts = append(opts, shortlink.WithCache(slCache))
	}

	// 布隆过滤器：预期条目为 0 时关闭
	var filter *slcache.BloomFilter
	if cfg.BloomExpectedItems > 0 {
		filter = slcache.NewBloomFilter(cfg.BloomExpectedItems, cfg.BloomFPRate)
		opts = append(opts, shortlink.WithFilter(filter))
	}

	svc, err := shortlink.NewService(store, pool, opts...)
	if err != nil {
		log.Fatal(err)
	}
	n, err := svc.WarmUp(startCtx)
	if err != nil {
		log.Fatal(err)
	}
	if filter != nil {
		metrics.BloomFilterItems.Set(float64(filter.Count()))
		slog.Info("filter warmed up", "ids", n, "approx_items", filter.Count())
	}

	// 点击统计（Channel 或 Kafka）
	var collector stats.Collector
	var kafkaConsumer *stats.KafkaConsumer
	var channelConsumer *stats.Consumer
	if cfg.KafkaEnabled {
		slog.Info("click stats via kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		collector = stats.NewKafkaCollector(cfg.KafkaBrokers, cfg.KafkaTopic)
		kafkaConsumer = stats.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, store)
		defer kafkaConsumer.Close()
	} else {
		slog.Info("click stats via channel")
		channelCollector := stats.NewChannelCollector(10000)
		collector = channelCollector
		channelConsumer = stats.NewConsumer(store, channelCollector)
	}

	// 对外业务
	r := gee.New()
	r.Use(gee.Recovery(), middleware.ReqID(), middleware.AccessLog(), httpmiddleware.Metrics(), httpmiddleware.TraceName())
	shortlinkhttpapi.RegisterPublicRoutes(r, svc, collector)
	api := r.Group("/api/v1")
	// 健康检查不放在根下：/healthz 在某些 ALPHABET 下本身就是合法 token
	api.GET("/healthz", func(ctx *gee.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	shortlinkhttpapi.RegisterAPIRoutes(api, svc, cfg.PublicBaseURL)
	if err := shortlinkhttpapi.CheckRoutes(r.Routes(), pool); err != nil {
		log.Fatal(err)
	}

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(cfg, publicHandler)
	adminSrv := httpserver.NewAdmin(cfg, newAdminMux(cfg, store))

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(stopCtx)
	g.Go(func() error {
		return httpserver.RunWithGracefulShutdownContext(publicSrv, cfg.ShutdownTimeout, gctx)
	})
	g.Go(func() error {
		return httpserver.RunWithGracefulShutdownContext(adminSrv, cfg.ShutdownTimeout, gctx)
	})
	if filter != nil && cfg.BloomRefresh > 0 {
		g.Go(func() error {
			refreshFilter(gctx, svc, filter, cfg.BloomRefresh)
			return nil
		})
	}

	// consumer 不跟随 stopCtx：要等服务器停止、collector 关闭后把剩余事件写完
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	var consumers sync.WaitGroup
	if kafkaConsumer != nil {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			kafkaConsumer.Run(consumerCtx)
		}()
	}
	if channelConsumer != nil {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			channelConsumer.Run(consumerCtx)
		}()
	}

	slog.Info("server started", "addr", cfg.Addr, "admin_addr", cfg.AdminAddr, "store", cfg.StoreDriver, "version", version)
	err = g.Wait()

	collector.Close()
	if kafkaConsumer != nil {
		// Kafka 端没有“关闭”信号，给 reader 一点时间读完刚写入的消息
		time.AfterFunc(2*time.Second, cancelConsumer)
	}
	consumers.Wait()
	cancelConsumer()

	if err != nil {
		log.Fatal(err)
	}
	slog.Info("server stopped")
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h).With("service", cfg.ServiceName))
}

// refreshFilter 定期把别的实例新建的 id 加进过滤器。
func refreshFilter(ctx context.Context, svc *shortlink.Service, filter *slcache.BloomFilter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, every)
			n, err := svc.WarmUp(refreshCtx)
			cancel()
			if err != nil {
				slog.Warn("filter refresh failed", "err", err)
				continue
			}
			metrics.BloomFilterItems.Set(float64(filter.Count()))
			if n > 0 {
				slog.Debug("filter refreshed", "ids", n, "approx_items", filter.Count())
			}
		}
	}
}
