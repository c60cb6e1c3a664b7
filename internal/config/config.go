package config

import (
	"os"
	"strconv"
	"time"

	"skybook/internal/cache"
	"skybook/internal/database"
	"skybook/internal/external"
	"skybook/internal/messaging"
	"skybook/internal/search"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	JWTSecret string

	SearchEnabled bool

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Search   search.Config
	Flights  external.FlightConfig
	Users    external.UserConfig
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		JWTSecret: getEnv("JWT_SECRET", ""),

		SearchEnabled: getEnv("SEARCH_ENABLED", "false") == "true",

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "skybook"),
			Password:           getEnv("DB_PASSWORD", "skybook123"),
			DBName:             getEnv("DB_NAME", "skybook"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  time.Duration(getEnvInt("REDIS_LOCK_TTL_SEC", 30)) * time.Second,
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "skybook"),
			ClientID:  getEnv("NATS_CLIENT_ID", "skybook-api"),
		},

		Search: search.Config{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Index:      getEnv("ELASTICSEARCH_INDEX", "bookings"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
			Timeout:    time.Duration(getEnvInt("ELASTICSEARCH_TIMEOUT_SEC", 10)) * time.Second,
		},

		Flights: external.FlightConfig{
			BaseURL:        getEnv("FLIGHT_SERVICE_URL", "http://localhost:5002/api"),
			Timeout:        time.Duration(getEnvInt("FLIGHT_TIMEOUT_SEC", 10)) * time.Second,
			ReserveRetries: getEnvInt("FLIGHT_RESERVE_RETRIES", 3),
		},

		Users: external.UserConfig{
			BaseURL: getEnv("USER_SERVICE_URL", "http://localhost:5001/api"),
			Timeout: time.Duration(getEnvInt("USER_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
