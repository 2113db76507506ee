// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the stock cache, reconciliation
// timing, and the HTTP facade.
type Config struct {
	ServiceName     string
	Env             string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	CatalogBaseURL string
	CatalogTimeout time.Duration

	SnapshotDir   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FreshnessMaxAge time.Duration
	CleanupInterval time.Duration
	PollInterval    time.Duration
	ReconcileDelay  time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		ServiceName:     getenv("SERVICE_NAME", "stocksync"),
		Env:             getenv("ENV", "dev"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),

		CatalogBaseURL: getenv("CATALOG_BASE_URL", "http://localhost:9090"),
		CatalogTimeout: durenvms("CATALOG_TIMEOUT_MS", 5000),

		SnapshotDir:   getenv("SNAPSHOT_DIR", "./data"),
		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       atoienv("REDIS_DB", 0),

		FreshnessMaxAge: durenvs("FRESHNESS_MAX_AGE_SEC", 3600),
		CleanupInterval: durenvs("CLEANUP_INTERVAL_SEC", 600),
		PollInterval:    durenvs("POLL_INTERVAL_SEC", 60),
		ReconcileDelay:  durenvms("RECONCILE_DELAY_MS", 500),
	}
}
