package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL   string
	ServerAddr    string
	MigrationsDir string
	UploadDir     string

	AuthVerifyURL string
	AuthTimeout   time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	TracingEnabled bool
	JaegerEndpoint string
	ServiceName    string

	LogLevel string
}

// Load reads configuration from the environment, with a .env overlay
// for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "creditojus")
		pass := getenv("POSTGRES_PASSWORD", "creditojus_pass")
		db := getenv("POSTGRES_DB", "creditojus")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	return &Config{
		DatabaseURL:   dsn,
		ServerAddr:    getenv("SERVER_ADDR", "0.0.0.0:8080"),
		MigrationsDir: getenv("MIGRATIONS_DIR", "migrations"),
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),

		AuthVerifyURL: getenv("AUTH_VERIFY_URL", "http://localhost:8081/auth/verify"),
		AuthTimeout:   parseDuration(getenv("AUTH_TIMEOUT", "5s"), 5*time.Second),

		KafkaEnabled: parseBool(getenv("KAFKA_ENABLED", "false"), false),
		KafkaBrokers: strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getenv("KAFKA_TOPIC", "creditojus.lifecycle"),

		TracingEnabled: parseBool(getenv("TRACING_ENABLED", "false"), false),
		JaegerEndpoint: getenv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		ServiceName:    getenv("SERVICE_NAME", "creditojus"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
