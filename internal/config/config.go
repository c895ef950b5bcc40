package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Widget    WidgetConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	// WriteTimeout of zero keeps event streams open indefinitely.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RateLimit is the per-client request rate, RateBurst its burst size.
	RateLimit      int
	RateBurst      int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	GroupID     string
	MockMode    bool
	ConfigTopic string
}

type RedisConfig struct {
	Addr    string
	LockTTL time.Duration
}

type StripeConfig struct {
	// APIBaseURL overrides the Stripe API host, e.g. for stripe-mock.
	APIBaseURL        string
	MaxNetworkRetries int64
}

type WidgetConfig struct {
	MountTarget       string
	ErrorDisplayDelay time.Duration
}

type TelemetryConfig struct {
	StdoutTracing bool
	ServiceName   string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", ":8085"),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RateLimit:      getInt("RATE_LIMIT_RPS", 20),
			RateBurst:      getInt("RATE_LIMIT_BURST", 40),
			AllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Enabled:      getBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "root"),
			Password:     getEnv("DB_PASS", "password"),
			Database:     getEnv("DB_NAME", "payment_widget"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID:     getEnv("KAFKA_GROUP_ID", "payment-widget"),
			MockMode:    getBool("KAFKA_MOCK_MODE", true),
			ConfigTopic: getEnv("KAFKA_CONFIG_TOPIC", "widget-config"),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", ""),
			LockTTL: getDuration("REDIS_LOCK_TTL", 2*time.Minute),
		},
		Stripe: StripeConfig{
			APIBaseURL:        getEnv("STRIPE_API_BASE_URL", ""),
			MaxNetworkRetries: int64(getInt("STRIPE_MAX_NETWORK_RETRIES", 2)),
		},
		Widget: WidgetConfig{
			MountTarget:       getEnv("WIDGET_MOUNT_TARGET", "#card-element"),
			ErrorDisplayDelay: getDuration("WIDGET_ERROR_DISPLAY_DELAY", 4*time.Second),
		},
		Telemetry: TelemetryConfig{
			StdoutTracing: getBool("TRACING_STDOUT", false),
			ServiceName:   getEnv("SERVICE_NAME", "payment-widget"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
