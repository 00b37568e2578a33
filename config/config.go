package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	CORS_ORIGIN string
	APP_ENV     string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	CURRENCY              string

	COMMISSION_RATE decimal.Decimal

	COMMIT_LOCK_TTL        time.Duration
	COMMIT_LOCK_GRACE      time.Duration
	LOCK_SWEEP_INTERVAL    time.Duration
	GATEWAY_TIMEOUT        time.Duration
	STALE_PROCESSING_AFTER time.Duration

	REDIS_URL     string
	KAFKA_BROKERS []string
	KAFKA_TOPIC   string

	DOCUMENTS_DIR         string
	DOC_BACKFILL_INTERVAL time.Duration
	NOTIFY_POOL_SIZE      int

	PLAN_MONTHLY_PRICE int64
	PLAN_ANNUAL_PRICE  int64

	LOG_LEVEL string
	LOG_FILE  string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")
	APP_ENV = getEnv("APP_ENV", "development")

	STRIPE_SECRET_KEY = mustEnv("STRIPE_SECRET_KEY")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")
	CURRENCY = strings.ToLower(getEnv("CURRENCY", "clp"))

	COMMISSION_RATE = getDecimal("COMMISSION_RATE", "0.05")

	COMMIT_LOCK_TTL = getDuration("COMMIT_LOCK_TTL", 15*time.Second)
	COMMIT_LOCK_GRACE = getDuration("COMMIT_LOCK_GRACE", 3*time.Second)
	LOCK_SWEEP_INTERVAL = getDuration("LOCK_SWEEP_INTERVAL", 30*time.Second)
	GATEWAY_TIMEOUT = getDuration("GATEWAY_TIMEOUT", 20*time.Second)
	STALE_PROCESSING_AFTER = getDuration("STALE_PROCESSING_AFTER", 15*time.Minute)

	REDIS_URL = getEnv("REDIS_URL", "")
	KAFKA_BROKERS = splitList(getEnv("KAFKA_BROKERS", ""))
	KAFKA_TOPIC = getEnv("KAFKA_TOPIC", "settlement-events")

	DOCUMENTS_DIR = getEnv("DOCUMENTS_DIR", "./documents")
	DOC_BACKFILL_INTERVAL = getDuration("DOC_BACKFILL_INTERVAL", 5*time.Minute)
	NOTIFY_POOL_SIZE = getInt("NOTIFY_POOL_SIZE", 16)

	PLAN_MONTHLY_PRICE = int64(getInt("PLAN_MONTHLY_PRICE", 9990))
	PLAN_ANNUAL_PRICE = int64(getInt("PLAN_ANNUAL_PRICE", 99900))

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FILE = getEnv("LOG_FILE", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Fatalf("Invalid duration for %s: %q", key, raw)
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %q", key, raw)
	}
	return n
}

func getDecimal(key string, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		log.Fatalf("Invalid rate for %s: %q", key, raw)
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
