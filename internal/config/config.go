package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	// BaseDomain is the apex domain teams live under; a request to
	// <subdomain>.<BaseDomain> resolves the tenant from the leftmost label.
	BaseDomain string

	AuthJWTSecret  string
	TokenTTLHours  int
	TransferLink   string
	BootstrapAdmin BootstrapAdminConfig

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Email     EmailConfig
	RateLimit RateLimitConfig
}

type BootstrapAdminConfig struct {
	Enabled  bool
	Email    string
	Password string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRate  float64
	LoginBurst int

	PublicResolveRate  float64
	PublicResolveBurst int

	TransferLockTTLSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "stride"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   environment,
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		BaseDomain:    strings.ToLower(strings.TrimSpace(getenv("BASE_DOMAIN", "stride.local"))),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		TokenTTLHours: getenvInt("AUTH_TOKEN_TTL_HOURS", 24),
		TransferLink:  getenv("TRANSFER_LINK_BASE", "https://app.stride.local/transfer"),
		BootstrapAdmin: BootstrapAdminConfig{
			Enabled:  getenvBool("BOOTSTRAP_ADMIN_ENABLED", environment != "production"),
			Email:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "admin@stride.local")),
			Password: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "stride"),
		DBUser:            getenv("DATABASE_USER", "stride"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@stride.local"),
		},
		RateLimit: RateLimitConfig{
			Enabled:                getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:          getenv("REDIS_PASSWORD", ""),
			RedisDB:                getenvInt("REDIS_DB", 0),
			LoginRate:              getenvFloat("RATE_LIMIT_LOGIN_RATE", 1),
			LoginBurst:             getenvInt("RATE_LIMIT_LOGIN_BURST", 5),
			PublicResolveRate:      getenvFloat("RATE_LIMIT_RESOLVE_RATE", 10),
			PublicResolveBurst:     getenvInt("RATE_LIMIT_RESOLVE_BURST", 30),
			TransferLockTTLSeconds: getenvInt("RATE_LIMIT_TRANSFER_LOCK_TTL", 10),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
