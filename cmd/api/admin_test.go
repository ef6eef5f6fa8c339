package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"urlshortener.local/internal/platform/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestAdminReadyz(t *testing.T) {
	cfg := config.Config{ServiceName: "urlshortener", StoreDriver: config.StoreMemory}

	ok := newAdminMux(cfg, pingFunc(func(context.Context) error { return nil }))
	w := httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz code = %d, want 200", w.Code)
	}

	down := newAdminMux(cfg, pingFunc(func(context.Context) error { return errors.New("down") }))
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz code = %d, want 503", w.Code)
	}
}

func TestAdminVersionAndPprof(t *testing.T) {
	cfg := config.Config{ServiceName: "urlshortener", StoreDriver: config.StoreSQLite}
	mux := newAdminMux(cfg, pingFunc(func(context.Context) error { return nil }))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if body["service_name"] != "urlshortener" || body["store"] != "sqlite" {
		t.Fatalf("version body = %v", body)
	}

	// pprof 默认关闭
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("pprof code = %d, want 404", w.Code)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	s, err := openStore(context.Background(), config.Config{StoreDriver: config.StoreMemory})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{StoreDriver: "mysql"})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestAdminHealthz(t *testing.T) {
	mux := newAdminMux(config.Config{}, pingFunc(func(context.Context) error { return errors.New("down") }))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	// 存活检查不看存储
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: got %d %q", w.Code, w.Body.String())
	}
}
