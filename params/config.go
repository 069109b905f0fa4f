package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Log struct {
	File  string // empty logs to stdout only
	Level string
}

type Store struct {
	// Backend is "memory" (map-backed) or "pebble" (pebble on an in-memory filesystem).
	Backend string
}

type Kafka struct {
	Brokers []string // empty disables order events
	Topic   string
}

type OrderGen struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
	NumUsers  int
}

type Config struct {
	API             API
	Log             Log
	Store           Store
	Kafka           Kafka
	OrderGen        OrderGen
	ShutdownTimeout time.Duration
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: Log{
			File:  "data/marketplace.log",
			Level: "info",
		},
		Store: Store{Backend: "memory"},
		Kafka: Kafka{Topic: "silver-orders"},
		OrderGen: OrderGen{
			Enabled:   false,
			Interval:  time.Second,
			BatchSize: 10,
			NumUsers:  20,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// godotenv never overrides variables already set
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	// LOG_FILE set but empty turns the file sink off
	if file, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Log.File = file
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.Store.Backend))

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	if enabled := os.Getenv("ENABLE_ORDERGEN"); enabled != "" {
		cfg.OrderGen.Enabled = enabled == "true"
	}
	cfg.OrderGen.Interval = getEnvMillis("ORDERGEN_INTERVAL_MS", cfg.OrderGen.Interval)
	cfg.OrderGen.BatchSize = getEnvInt("ORDERGEN_BATCH", cfg.OrderGen.BatchSize)
	cfg.OrderGen.NumUsers = getEnvInt("ORDERGEN_USERS", cfg.OrderGen.NumUsers)

	cfg.ShutdownTimeout = getEnvMillis("SHUTDOWN_TIMEOUT_MS", cfg.ShutdownTimeout)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
