package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver string
	DBDSN    string
	SeedFile string

	RedisAddr string
	JWTSecret string

	KafkaBrokers string
	KafkaTopic   string

	SnapshotTTL      time.Duration
	CheckoutGuardTTL time.Duration
	LowStockInterval time.Duration
	RequestTimeout   time.Duration

	Tracing string
}

// Load reads an optional .env file, then environment variables with defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: failed to load .env: %v", err)
	}

	return Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:         getEnv("GRPC_ADDR", ":50051"),
		DBDriver:         getEnv("DB_DRIVER", "mysql"),
		DBDSN:            getEnv("DB_DSN", "root:root@tcp(localhost:3306)/zoo_retail?parseTime=true"),
		SeedFile:         os.Getenv("SEED_FILE"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:        getEnv("JWT_SECRET", "dev_secret"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "retail.sales"),
		SnapshotTTL:      getDuration("SNAPSHOT_TTL", 30*time.Second),
		CheckoutGuardTTL: getDuration("CHECKOUT_GUARD_TTL", 24*time.Hour),
		LowStockInterval: getDuration("LOW_STOCK_INTERVAL", 5*time.Minute),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 5*time.Second),
		Tracing:          os.Getenv("TRACING"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, v, fallback)
		return fallback
	}
	return d
}
