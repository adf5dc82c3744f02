package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/random"
)

// Config holds process configuration read from the environment.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret          string
	JWTSecretGenerated bool
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ResumeBucket   string
	ResumeURLTTL   time.Duration

	LogLevel  string
	LogFormat string

	GuestRateLimit  int
	GuestRateWindow time.Duration

	NotificationWebhookURL string
	NotificationInterval   time.Duration
	NotificationBatchSize  int
	IntegrityScanInterval  time.Duration

	// Optional platform operator created at startup when absent.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		ResumeBucket:   getEnv("RESUME_BUCKET", "resumes"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		NotificationWebhookURL: os.Getenv("NOTIFICATION_WEBHOOK_URL"),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if (cfg.BootstrapAdminEmail == "") != (cfg.BootstrapAdminPassword == "") {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = random.String(48)
		cfg.JWTSecretGenerated = true
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResumeURLTTL, err = getDuration("RESUME_URL_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GuestRateWindow, err = getDuration("GUEST_RATE_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if cfg.NotificationInterval, err = getDuration("NOTIFICATION_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.IntegrityScanInterval, err = getDuration("INTEGRITY_SCAN_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.GuestRateLimit, err = getInt("GUEST_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.NotificationBatchSize, err = getInt("NOTIFICATION_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.MinioUseSSL, err = getBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
