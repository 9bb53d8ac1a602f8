package utils

import (
	"context"
	"testing"
	"time"
)

func TestPostgresConfigDefaults(t *testing.T) {
	cfg := PostgresConfig{DSN: "host=localhost"}.withDefaults()

	if cfg.DriverName != "pgx" {
		t.Fatalf("driver = %q, want pgx", cfg.DriverName)
	}
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Fatalf("pool sizes not defaulted: %+v", cfg)
	}
	if cfg.PingTimeout <= 0 || cfg.ConnMaxLifetime <= 0 {
		t.Fatalf("timeouts not defaulted: %+v", cfg)
	}
}

func TestPostgresConfigKeepsExplicitValues(t *testing.T) {
	in := PostgresConfig{
		DSN:          "host=localhost",
		MaxOpenConns: 3,
		PingTimeout:  time.Second,
	}
	cfg := in.withDefaults()
	if cfg.MaxOpenConns != 3 || cfg.PingTimeout != time.Second {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), PostgresConfig{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
