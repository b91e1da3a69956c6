package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	Store string // "memory" | "postgres"
	DBURL string

	// administrator principal; the password is only ever held as a bcrypt hash
	AdminUsername     string
	AdminPasswordHash string
	AdminPassword     string

	JWTSecret           string
	JWTAccessTTLMinutes int

	PhoneCountryCode   string
	SimulatedLatencyMS int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string

	SignupSessionTTLMinutes int
	LoginRateLimit          int
	CORSAllowedOrigins      []string

	NotifierFail    bool
	NotifierSleepMS int

	WorkerConcurrency int
	WorkerHealthPort  int

	SeedDemoUsers bool
}

func Load() Config {
	// a missing .env is fine, the process environment wins anyway
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:                     env,
		Port:                    getEnvInt("PORT", 8080),
		Store:                   strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		DBURL:                   buildDBURL(),
		AdminUsername:           getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:       getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:           getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:               getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes:     getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		PhoneCountryCode:        getEnv("PHONE_COUNTRY_CODE", "91"),
		SimulatedLatencyMS:      getEnvInt("SIMULATED_LATENCY_MS", 0),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		OTLPEndpoint:            getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SignupSessionTTLMinutes: getEnvInt("SIGNUP_SESSION_TTL_MINUTES", 30),
		LoginRateLimit:          getEnvInt("LOGIN_RATE_LIMIT", 10),
		CORSAllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		NotifierFail:            getEnv("NOTIFIER_FAIL", "") == "1",
		NotifierSleepMS:         getEnvInt("NOTIFIER_SLEEP_MS", 0),
		WorkerConcurrency:       getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerHealthPort:        getEnvInt("WORKER_HEALTH_PORT", 8081),
		SeedDemoUsers:           getEnvBool("SEED_DEMO_USERS", env == "dev"),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SignupSessionTTLMinutes) * time.Minute
}

func (c Config) SimulatedLatency() time.Duration {
	return time.Duration(c.SimulatedLatencyMS) * time.Millisecond
}

func (c Config) NotifierSleep() time.Duration {
	return time.Duration(c.NotifierSleepMS) * time.Millisecond
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "campuserp")
	pass := getEnv("DB_PASSWORD", "campuserp")
	name := getEnv("DB_NAME", "campuserp")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an integer, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
