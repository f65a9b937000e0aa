package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr      string
	PostgresDSN   string // empty = in-memory stores
	RedisAddr     string
	KafkaBrokers  []string // empty = no event stream
	AdminPassword string
	ServiceName   string
}

func Load() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		KafkaBrokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin"),
		ServiceName:   getenv("SERVICE_NAME", "shop-api"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
