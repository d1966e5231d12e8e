package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Auth.APIKeyHeader != "api-key" {
		t.Fatalf("api key header = %q", cfg.Auth.APIKeyHeader)
	}
	if cfg.Service.BasePath != "/v1" {
		t.Fatalf("base path = %q", cfg.Service.BasePath)
	}
	pool := cfg.Pool()
	if pool.PoolSize != 10 || pool.MaxOverflow != 10 {
		t.Fatalf("pool bounds = %d/%d", pool.PoolSize, pool.MaxOverflow)
	}
	if pool.RecycleTime != 15*time.Minute {
		t.Fatalf("recycle = %v", pool.RecycleTime)
	}
	if cfg.AcquireTimeout() != 30*time.Second {
		t.Fatalf("acquire timeout = %v", cfg.AcquireTimeout())
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
service:
  name: TASK FLOW API
  addr: ":9000"
auth:
  api_key: sekrit
db:
  path: /tmp/tf.db
  pool_size: 4
  recycle_seconds: 60
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Service.Addr != ":9000" {
		t.Fatalf("addr = %q", cfg.Service.Addr)
	}
	if cfg.Auth.APIKey != "sekrit" {
		t.Fatalf("api key = %q", cfg.Auth.APIKey)
	}
	if cfg.DB.Path != "/tmp/tf.db" || cfg.DB.PoolSize != 4 {
		t.Fatalf("db section = %+v", cfg.DB)
	}
	// Unset keys keep their defaults.
	if cfg.DB.MaxOverflow != 10 {
		t.Fatalf("max_overflow = %d, want default 10", cfg.DB.MaxOverflow)
	}
	if cfg.Service.BasePath != "/v1" {
		t.Fatalf("base path = %q, want default /v1", cfg.Service.BasePath)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DB.PoolSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero pool size must fail validation")
	}

	cfg = Default()
	cfg.Service.BasePath = "v1"
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative base path must fail validation")
	}

	if _, err := FromYAML([]byte("db: [broken")); err == nil {
		t.Fatal("malformed yaml must fail")
	}
}
