// Package config loads the backend configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string
	LogLevel string
	// SequenceNodeID identifies this instance to the order-number sequence.
	// Every running instance must carry a distinct id (0..1023).
	SequenceNodeID int64
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
}

// Load reads the optional .env file at path (empty path skips the file) and
// assembles the config from environment variables. Missing required
// variables fail loading rather than surfacing later as connection errors.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = envOr("APP_PORT", "8080")
	cfg.App.LogLevel = envOr("LOG_LEVEL", "info")

	nodeID, err := envInt("SEQUENCE_NODE_ID", 0)
	if err != nil {
		return nil, err
	}
	if nodeID < 0 || nodeID > 1023 {
		return nil, fmt.Errorf("config: SEQUENCE_NODE_ID must be between 0 and 1023, got %d", nodeID)
	}
	cfg.App.SequenceNodeID = int64(nodeID)

	for _, v := range []struct {
		key  string
		dest *string
	}{
		{"DB_HOST", &cfg.Postgres.Host},
		{"DB_PORT", &cfg.Postgres.Port},
		{"DB_USER", &cfg.Postgres.User},
		{"DB_PASSWORD", &cfg.Postgres.Password},
		{"DB_NAME", &cfg.Postgres.DBName},
	} {
		*v.dest = os.Getenv(v.key)
		if *v.dest == "" {
			return nil, fmt.Errorf("config: %s is required", v.key)
		}
	}
	cfg.Postgres.SSLMode = envOr("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = envOr("DB_MIGRATIONS_PATH", "migrations")

	maxConns, err := envInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := envInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	lifetimeMin, err := envInt("DB_CONN_LIFETIME_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.Postgres.MaxConns = int32(maxConns)
	cfg.Postgres.MinConns = int32(minConns)
	cfg.Postgres.MaxConnLifetime = time.Duration(lifetimeMin) * time.Minute

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}
