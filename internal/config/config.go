package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the server. An empty DatabaseURL
// selects the in-memory stores; empty KafkaBrokers disables event publishing.
type Config struct {
	ListenAddr   string
	DatabaseURL  string
	KafkaBrokers []string
	DemoOTP      string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DemoOTP:     os.Getenv("DEMO_OTP"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
