package config

import (
	"strings"
	"testing"
)

func TestDSNCloudSQLSocket(t *testing.T) {
	cfg := &Config{
		DBUser:                 "api",
		DBPass:                 "secret",
		DBName:                 "drugbank",
		CloudSQLConnectionName: "project:region:instance",
	}
	dsn := cfg.DSN()
	if !strings.Contains(dsn, "host=/cloudsql/project:region:instance") {
		t.Fatalf("expected unix socket host, got %q", dsn)
	}
	if strings.Contains(dsn, "port=") {
		t.Fatalf("socket DSN should not carry a port: %q", dsn)
	}
}

func TestDSNTCPFallback(t *testing.T) {
	cfg := &Config{
		DBUser: "api",
		DBPass: "secret",
		DBName: "drugbank",
		DBHost: "db.internal",
		DBPort: 5433,
	}
	dsn := cfg.DSN()
	if !strings.Contains(dsn, "host=db.internal") || !strings.Contains(dsn, "port=5433") {
		t.Fatalf("unexpected TCP DSN: %q", dsn)
	}
}

func TestMaxOpenConns(t *testing.T) {
	cfg := &Config{PoolSize: 1, PoolMaxOverflow: 2}
	if got := cfg.MaxOpenConns(); got != 3 {
		t.Fatalf("expected 3 max open conns, got %d", got)
	}
}
