package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Feed     FeedConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the market snapshot cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers        []string
	FeedTopic      string
	FeedGroupID    string
	EventsTopic    string
	ConsumeEnabled bool
}

// FeedConfig holds the NEPSE scraper proxy poller configuration
type FeedConfig struct {
	ProxyURL     string
	PollInterval time.Duration
	PollEnabled  bool
}

// AuthConfig holds identity-provider configuration
type AuthConfig struct {
	ProviderURL string
	APIKey      string
	CacheTTL    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "portfolio"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			FeedTopic:      getEnv("KAFKA_FEED_TOPIC", "nepse-quotes"),
			FeedGroupID:    getEnv("KAFKA_FEED_GROUP_ID", "portfolio-service"),
			EventsTopic:    getEnv("KAFKA_EVENTS_TOPIC", "portfolio-events"),
			ConsumeEnabled: getEnvBool("KAFKA_FEED_CONSUMER", false),
		},
		Feed: FeedConfig{
			ProxyURL:     getEnv("NEPSE_PROXY_URL", "http://localhost:5000/api/nepse"),
			PollInterval: getEnvDuration("NEPSE_POLL_INTERVAL", 60*time.Second),
			PollEnabled:  getEnvBool("NEPSE_POLL_ENABLED", true),
		},
		Auth: AuthConfig{
			ProviderURL: getEnv("AUTH_PROVIDER_URL", "http://localhost:9099"),
			APIKey:      getEnv("AUTH_API_KEY", ""),
			CacheTTL:    getEnvDuration("AUTH_CACHE_TTL", 5*time.Minute),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
