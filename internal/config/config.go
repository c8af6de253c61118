package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	APIBaseURL string

	CallbackAddr string
	CallbackURL  string

	SessionDBPath string

	LogLevel string

	ShippingFee decimal.Decimal
	Currency    string

	HTTPTimeout time.Duration
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		APIBaseURL: os.Getenv("API_BASE_URL"),

		CallbackAddr: EnvDefault("CALLBACK_ADDR", ":8090"),
		CallbackURL:  EnvDefault("CALLBACK_URL", "http://localhost:8090"),

		SessionDBPath: EnvDefault("SESSION_DB_PATH", "shopclient.db"),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		ShippingFee: decimal.NewFromInt(int64(EnvIntDefault("SHIPPING_FEE", 50))),
		Currency:    EnvDefault("CURRENCY", "INR"),

		HTTPTimeout: time.Duration(EnvIntDefault("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}
