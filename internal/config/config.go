package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	NewRelic NewRelicConfig
	Tracking TrackingConfig
	Fare     FareConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the lifecycle event sink configuration.
// An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// TrackingConfig holds the tunables of the ride tracking core.
type TrackingConfig struct {
	AnimationDuration   time.Duration // reconciler window per location update
	FreeWait            time.Duration // free waiting budget once the driver arrives
	FrameInterval       time.Duration // position sampling cadence on the stream
	LocationMinInterval time.Duration // driver send cadence by time
	LocationMinDistance float64       // driver send cadence by distance, meters
}

// FareConfig holds server-side pricing configuration.
type FareConfig struct {
	CacheTTL time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second, &errs),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second, &errs),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ride_tracking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0, &errs),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "ride-events"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ride-tracking-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Tracking: TrackingConfig{
			AnimationDuration:   getDurationEnv("TRACKING_ANIMATION_DURATION", 2*time.Second, &errs),
			FreeWait:            getDurationEnv("TRACKING_FREE_WAIT", 300*time.Second, &errs),
			FrameInterval:       getDurationEnv("TRACKING_FRAME_INTERVAL", 100*time.Millisecond, &errs),
			LocationMinInterval: getDurationEnv("TRACKING_LOCATION_MIN_INTERVAL", 10*time.Second, &errs),
			LocationMinDistance: getFloatEnv("TRACKING_LOCATION_MIN_DISTANCE_M", 50, &errs),
		},
		Fare: FareConfig{
			CacheTTL: getDurationEnv("FARE_CACHE_TTL", 60*time.Second, &errs),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	errs = append(errs, cfg.validate()...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	positive := map[string]time.Duration{
		"TRACKING_ANIMATION_DURATION":    c.Tracking.AnimationDuration,
		"TRACKING_FREE_WAIT":             c.Tracking.FreeWait,
		"TRACKING_FRAME_INTERVAL":        c.Tracking.FrameInterval,
		"TRACKING_LOCATION_MIN_INTERVAL": c.Tracking.LocationMinInterval,
		"FARE_CACHE_TTL":                 c.Fare.CacheTTL,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", key))
		}
	}
	if c.Tracking.LocationMinDistance < 0 {
		errs = append(errs, fmt.Errorf("TRACKING_LOCATION_MIN_DISTANCE_M must be >= 0"))
	}
	return errs
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int, errs *[]error) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64, errs *[]error) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return f
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return duration
	}
	return defaultValue
}

func splitAndTrim(v string) []string {
	if v == "" {
		return nil
	}
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
