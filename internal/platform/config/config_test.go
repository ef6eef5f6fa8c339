package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestConfigLoad_UsesDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("IDLE_TIMEOUT", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	t.Setenv("READ_HEADER_TIMEOUT", "")
	t.Setenv("READ_TIMEOUT", "")
	t.Setenv("WRITE_TIMEOUT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ALPHABET", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":9999" {
		t.Fatalf("Addr: got %q, want %q", cfg.Addr, ":9999")
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("IdleTimeout: got %v, want %v", cfg.IdleTimeout, 60*time.Second)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout: got %v, want %v", cfg.ShutdownTimeout, 10*time.Second)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("ReadHeaderTimeout: got %v, want %v", cfg.ReadHeaderTimeout, 5*time.Second)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Fatalf("ReadTimeout: got %v, want %v", cfg.ReadTimeout, 10*time.Second)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Fatalf("WriteTimeout: got %v, want %v", cfg.WriteTimeout, 10*time.Second)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Fatalf("StoreDriver: got %q, want %q", cfg.StoreDriver, StorePostgres)
	}
	if cfg.Alphabet != "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" {
		t.Fatalf("Alphabet: got %q", cfg.Alphabet)
	}
}

func TestConfigLoad_ReadsEnv(t *testing.T) {
	t.Setenv("ADDR", ":18080")
	t.Setenv("IDLE_TIMEOUT", "2m")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("READ_HEADER_TIMEOUT", "4s")
	t.Setenv("READ_TIMEOUT", "5s")
	t.Setenv("WRITE_TIMEOUT", "6s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("ALPHABET", "abcdefghij")
	t.Setenv("ALPHABET_EXCLUDE", "")
	t.Setenv("PUBLIC_BASE_URL", "https://sho.rt/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BLOOM_FP_RATE", "0.001")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":18080" {
		t.Fatalf("Addr: got %q, want %q", cfg.Addr, ":18080")
	}
	if cfg.IdleTimeout != 2*time.Minute {
		t.Fatalf("IdleTimeout: got %v, want %v", cfg.IdleTimeout, 2*time.Minute)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("ShutdownTimeout: got %v, want %v", cfg.ShutdownTimeout, 3*time.Second)
	}
	if cfg.ReadHeaderTimeout != 4*time.Second {
		t.Fatalf("ReadHeaderTimeout: got %v, want %v", cfg.ReadHeaderTimeout, 4*time.Second)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("ReadTimeout: got %v, want %v", cfg.ReadTimeout, 5*time.Second)
	}
	if cfg.WriteTimeout != 6*time.Second {
		t.Fatalf("WriteTimeout: got %v, want %v", cfg.WriteTimeout, 6*time.Second)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel: got %v", cfg.LogLevel)
	}
	if cfg.StoreDriver != StoreSQLite {
		t.Fatalf("StoreDriver: got %q", cfg.StoreDriver)
	}
	if cfg.Alphabet != "abcdefghij" || cfg.AlphabetExclude != "" {
		t.Fatalf("Alphabet: got %q exclude %q", cfg.Alphabet, cfg.AlphabetExclude)
	}
	if cfg.PublicBaseURL != "https://sho.rt" {
		t.Fatalf("PublicBaseURL: got %q", cfg.PublicBaseURL)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Fatalf("KafkaBrokers: got %v, want %v", cfg.KafkaBrokers, want)
	}
	if cfg.BloomFPRate != 0.001 {
		t.Fatalf("BloomFPRate: got %v", cfg.BloomFPRate)
	}
}

func TestConfigLoad_InvalidDurationKeepsDefault(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "soon")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ALPHABET", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("IdleTimeout: got %v", cfg.IdleTimeout)
	}
}

func TestConfigLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":7000"
store_driver: memory
redis_enabled: false
redis_db: 3
write_timeout: 15s
kafka_brokers:
  - a:9092
  - b:9092
ALPHABET: "0123456789"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ADDR", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ALPHABET", "")
	t.Setenv("WRITE_TIMEOUT", "20s") // 环境变量优先于文件

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("Addr: got %q", cfg.Addr)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("StoreDriver: got %q", cfg.StoreDriver)
	}
	if cfg.RedisEnabled {
		t.Fatal("RedisEnabled: got true")
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("RedisDB: got %d", cfg.RedisDB)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Fatalf("WriteTimeout: got %v, want env value 20s", cfg.WriteTimeout)
	}
	if want := []string{"a:9092", "b:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Fatalf("KafkaBrokers: got %v", cfg.KafkaBrokers)
	}
	if cfg.Alphabet != "0123456789" {
		t.Fatalf("Alphabet: got %q", cfg.Alphabet)
	}
}

func TestConfigLoad_Errors(t *testing.T) {
	t.Run("unknown store driver", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("STORE_DRIVER", "mongo")
		if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("got %v, want ErrInvalidConfig", err)
		}
	})
	t.Run("missing config file", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "")
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("broken yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("addr: [unterminated"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("STORE_DRIVER", "")
		t.Setenv("CONFIG_FILE", path)
		if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("got %v, want ErrInvalidConfig", err)
		}
	})
}
