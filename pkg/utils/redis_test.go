package utils

import (
	"context"
	"testing"
)

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()

	if cfg.DialTimeout <= 0 || cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		t.Fatalf("timeouts not defaulted: %+v", cfg)
	}
	if cfg.PoolSize <= 0 || cfg.PoolTimeout <= 0 {
		t.Fatalf("pool settings not defaulted: %+v", cfg)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
