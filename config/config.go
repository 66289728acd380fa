// Package config holds the runtime configuration for the server.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr            string
	DBPath          string
	MigrationsDir   string
	JWTSecret       string
	RedisAddr       string
	SocketDebugEcho bool
}

// Load reads configuration from the environment, falling back to
// development defaults.
func Load() Config {
	cfg := Config{
		Addr:            getenv("LOVELINK_ADDR", ":8088"),
		DBPath:          getenv("LOVELINK_DB", "lovelink.db"),
		MigrationsDir:   getenv("LOVELINK_MIGRATIONS", "db/migrations/sqlite"),
		JWTSecret:       getenv("LOVELINK_JWT_SECRET", "dev-secret-change-me"),
		RedisAddr:       os.Getenv("LOVELINK_REDIS_ADDR"),
		SocketDebugEcho: true,
	}

	if v := os.Getenv("LOVELINK_SOCKET_DEBUG_ECHO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SocketDebugEcho = b
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
