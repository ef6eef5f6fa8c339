package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"urlshortener.local/internal/platform/config"
)

// New 创建对外服务的 http.Server。
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		Addr:              cfg.Addr,
	}
}

// NewAdmin 创建管理端口（metrics/readyz/pprof）的 http.Server，推荐只监听 127.0.0.1。
// pprof 的 profile 默认采样 30s，所以不设 WriteTimeout。
func NewAdmin(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		Addr:              cfg.AdminAddr,
	}
}

// RunWithGracefulShutdownContext 启动 srv，stopCtx 结束后在 shutdownTimeout 内优雅关闭。
// 正常关闭返回 nil。
func RunWithGracefulShutdownContext(srv *http.Server, shutdownTimeout time.Duration, stopCtx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stopCtx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}
