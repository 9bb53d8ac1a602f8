package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:       AppConfig{Env: "local", Port: 8080},
		DB:        DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "helpdesk"},
		Redis:     RedisConfig{Host: "localhost", Port: 6379},
		Auth:      AuthConfig{JWTSecret: "secret"},
		Signaling: SignalingConfig{BaseURL: "http://localhost:8080"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "helpdesk"
	c.Auth.JWTAudience = "helpdesk-api"
	c.Notes.StorageDir = "/var/lib/helpdesk/notes"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Signaling.PollInterval != 2*time.Second {
		t.Fatalf("expected default poll interval 2s, got %v", c.Signaling.PollInterval)
	}
	if c.Notes.StorageDir == "" {
		t.Fatalf("expected local default storage dir")
	}
}

func TestValidate_SessionTTLMustExceedPollInterval(t *testing.T) {
	c := validLocal()
	c.Signaling.PollInterval = 10 * time.Second
	c.Signaling.SessionTTL = time.Second
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for TTL below poll interval")
	}
}
