package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AdmissionMode selects how booking requests reach the admission engine.
// Resolved once at startup, never re-checked per call.
type AdmissionMode string

const (
	// AdmissionDirect processes booking requests synchronously in the handler.
	AdmissionDirect AdmissionMode = "direct"
	// AdmissionQueued serializes booking requests through the work queue.
	AdmissionQueued AdmissionMode = "queued"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Distributed lock configuration
	Lock LockConfig

	// Kafka work queue configuration
	Kafka KafkaConfig

	// Booking business rules
	Booking BookingConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
}

// Options returns the go-redis client options for this configuration.
// Lock operations are short single-key commands, so timeouts stay tight.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,

		PoolSize:     10,
		MinIdleConns: 5,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// LockConfig holds settings for the advisory distributed lock.
// TTL must exceed the expected admission-transaction duration with margin.
type LockConfig struct {
	TTL           time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// KafkaConfig holds Kafka work queue configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	AdmissionTopic    string
	PromotionTopic    string
	NotificationTopic string
	GroupID           string
	ConsumerWorkers   int
}

// BookingConfig holds booking business rules
type BookingConfig struct {
	Mode           AdmissionMode
	MaxQuantity    int
	CancelCutoff   time.Duration
	NotifyWindow   time.Duration
	ExpiryInterval time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "ticketly_db"),
			User:     getEnv("DB_USER", "ticketly_user"),
			Password: getEnv("DB_PASSWORD", "ticketly_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},

		Lock: LockConfig{
			TTL:           getDurationEnv("LOCK_TTL", 30*time.Second),
			RetryAttempts: getIntEnv("LOCK_RETRY_ATTEMPTS", 3),
			RetryBackoff:  getDurationEnv("LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		},

		Kafka: KafkaConfig{
			Enabled:           getBoolEnv("KAFKA_ENABLED", false),
			Brokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			AdmissionTopic:    getEnv("KAFKA_ADMISSION_TOPIC", "booking-admissions"),
			PromotionTopic:    getEnv("KAFKA_PROMOTION_TOPIC", "waitlist-promotions"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "ticketly-workers"),
			ConsumerWorkers:   getIntEnv("KAFKA_CONSUMER_WORKERS", 3),
		},

		Booking: BookingConfig{
			Mode:           parseAdmissionMode(getEnv("ADMISSION_MODE", "direct")),
			MaxQuantity:    getIntEnv("BOOKING_MAX_QUANTITY", 10),
			CancelCutoff:   getDurationEnv("BOOKING_CANCEL_CUTOFF", 24*time.Hour),
			NotifyWindow:   getDurationEnv("WAITLIST_NOTIFY_WINDOW", 15*time.Minute),
			ExpiryInterval: getDurationEnv("WAITLIST_EXPIRY_INTERVAL", time.Minute),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	// Queued admission requires the queue to be running
	if cfg.Booking.Mode == AdmissionQueued {
		cfg.Kafka.Enabled = true
	}

	return cfg
}

// parseAdmissionMode maps an env value to an AdmissionMode, defaulting to direct
func parseAdmissionMode(value string) AdmissionMode {
	if strings.EqualFold(value, string(AdmissionQueued)) {
		return AdmissionQueued
	}
	return AdmissionDirect
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
