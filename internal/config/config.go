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
	HTTPAddr    string

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

	Stripe  StripeConfig
	Storage StorageConfig
	Email   EmailConfig

	RedisAddr     string
	RedisPassword string

	CertificatePrefix  string
	VerificationURL    string
	SeedDemoProjects   bool
	DefaultCurrency    string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

// StripeConfig configures the payment gateway client.
type StripeConfig struct {
	APIKey  string
	APIBase string
	Timeout int
}

// StorageConfig configures the certificate object store.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

// EmailConfig configures outbound mail. Delivery is disabled when SMTPHost is
// empty.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "rewild"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "rewild"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Stripe: StripeConfig{
			APIKey:  strings.TrimSpace(getenv("STRIPE_API_KEY", "")),
			APIBase: strings.TrimSpace(getenv("STRIPE_API_BASE", "https://api.stripe.com")),
			Timeout: getenvInt("STRIPE_TIMEOUT_SECONDS", 12),
		},
		Storage: StorageConfig{
			Endpoint:      strings.TrimSpace(getenv("STORAGE_ENDPOINT", "")),
			AccessKey:     strings.TrimSpace(getenv("STORAGE_ACCESS_KEY", "")),
			SecretKey:     strings.TrimSpace(getenv("STORAGE_SECRET_KEY", "")),
			UseSSL:        getenvBool("STORAGE_USE_SSL", true),
			Bucket:        getenv("STORAGE_BUCKET", "certificates"),
			Prefix:        strings.Trim(getenv("STORAGE_PREFIX", "certificates"), "/"),
			PublicBaseURL: strings.TrimRight(getenv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},

		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "certificates@rewild.example.com"),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		CertificatePrefix:  strings.ToUpper(strings.TrimSpace(getenv("CERTIFICATE_PREFIX", "RWC"))),
		VerificationURL:    strings.TrimRight(getenv("VERIFICATION_URL", "https://rewild.example.com/verify"), "/"),
		SeedDemoProjects:   getenvBool("SEED_DEMO_PROJECTS", false),
		DefaultCurrency:    strings.ToUpper(getenv("DEFAULT_CURRENCY", "EUR")),
		CheckoutSuccessURL: getenv("CHECKOUT_SUCCESS_URL", "https://rewild.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:  getenv("CHECKOUT_CANCEL_URL", "https://rewild.example.com/checkout/cancel"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
