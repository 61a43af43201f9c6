package config

import "testing"

func TestLoadBackendsOptionalByDefault(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.DSN != "" {
		t.Errorf("postgres dsn = %q, want empty so the in-memory store engages", cfg.Postgres.DSN)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("redis addr = %q, want empty so the in-process cache engages", cfg.Redis.Addr)
	}
}

func TestLoadRedisAddrFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
}
