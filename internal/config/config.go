package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseDriver string // postgres | sqlite
	DatabaseURL    string
	MigrateOnStart bool

	// Redis; empty disables snapshots, the idle sorted set and pub/sub
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	TickRate            int
	FrameBroadcastEvery int
	TablesConfigPath    string

	// Sessions
	SessionIdleMinutes     int
	IdleWorkerPollInterval int // seconds
	SnapshotTTLMinutes     int

	// Security
	JWTSecret        string
	PlayerTokenHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getEnv("DATABASE_URL", "file:billiards.db?_pragma=busy_timeout(5000)"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		TickRate:            getEnvInt("TICK_RATE", 60),
		FrameBroadcastEvery: getEnvInt("FRAME_BROADCAST_EVERY", 2),
		TablesConfigPath:    getEnv("TABLES_CONFIG", ""),

		// Sessions
		SessionIdleMinutes:     getEnvInt("SESSION_IDLE_MINUTES", 30),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_SECONDS", 15),
		SnapshotTTLMinutes:     getEnvInt("SNAPSHOT_TTL_MINUTES", 60),

		// Security
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		PlayerTokenHours: getEnvInt("PLAYER_TOKEN_HOURS", 12),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
