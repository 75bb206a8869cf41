package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBDriver    string // postgres | sqlite
	DatabaseURL string
	SQLitePath  string

	RedisURL          string // empty disables the dashboard cache and distributed locks
	DashboardCacheTTL time.Duration

	JWTSecret    string
	JWTTTL       time.Duration
	AuthAccounts string // name:role:bcryptHash, comma separated
	AuthDisabled bool

	LogLevel string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "3000"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:       buildDatabaseURL(),
		SQLitePath:        getEnv("SQLITE_PATH", "restaurant.db"),
		RedisURL:          getEnv("REDIS_URL", ""),
		DashboardCacheTTL: getDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:            time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		AuthAccounts:      getEnv("AUTH_ACCOUNTS", ""),
		AuthDisabled:      getBool("AUTH_DISABLED", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RateLimitMax:      getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
	}
}

// buildDatabaseURL prefers DATABASE_URL and otherwise assembles a DSN from DB_* variables.
func buildDatabaseURL() string {
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "restaurant"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}
