package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Email provider identifiers accepted by EMAIL_PROVIDER.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderStub     = "stub"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Stripe webhook verification
	StripeWebhookSecret      string
	StripeSignatureTolerance time.Duration

	// Email delivery
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	SupportEmail     string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// microCMS content repository
	MicroCMSAPIKey        string
	MicroCMSServiceDomain string
	CMSCacheTTL           time.Duration
	CMSSlugField          string

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	BookingRateLimitRPS   float64
	BookingRateLimitBurst int

	NotifyRetryMaxAttempts int
	NotifyRetryBaseDelay   time.Duration
	NotifyRetryInterval    time.Duration
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding values already present in the environment. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		StripeWebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSignatureTolerance: getEnvAsDuration("STRIPE_SIGNATURE_TOLERANCE", 5*time.Minute),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", EmailProviderSendGrid))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Moment Works"),
		SupportEmail:     getEnv("SUPPORT_EMAIL", "hi.moment@gmail.com"),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		MicroCMSAPIKey:        getEnv("MICROCMS_API_KEY", ""),
		MicroCMSServiceDomain: getEnv("MICROCMS_SERVICE_DOMAIN", ""),
		CMSCacheTTL:           getEnvAsDuration("CMS_CACHE_TTL", 60*time.Second),
		CMSSlugField:          getEnv("CMS_SLUG_FIELD", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		BookingRateLimitRPS:   getEnvAsFloat("BOOKING_RATE_LIMIT_RPS", 0.5),
		BookingRateLimitBurst: getEnvAsInt("BOOKING_RATE_LIMIT_BURST", 5),

		NotifyRetryMaxAttempts: getEnvAsInt("NOTIFY_RETRY_MAX_ATTEMPTS", 6),
		NotifyRetryBaseDelay:   getEnvAsDuration("NOTIFY_RETRY_BASE_DELAY", time.Minute),
		NotifyRetryInterval:    getEnvAsDuration("NOTIFY_RETRY_INTERVAL", 30*time.Second),
	}
}

// Validate reports every required setting that is missing. It is called once
// at startup so the process fails before serving any request.
func (c *Config) Validate() error {
	var errs []error
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	require("DATABASE_URL", c.DatabaseURL)
	require("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	require("MICROCMS_API_KEY", c.MicroCMSAPIKey)
	require("MICROCMS_SERVICE_DOMAIN", c.MicroCMSServiceDomain)

	switch c.EmailProvider {
	case EmailProviderSendGrid:
		require("SENDGRID_API_KEY", c.SendGridAPIKey)
		require("EMAIL_FROM_ADDRESS", c.EmailFromAddress)
	case EmailProviderSES:
		require("EMAIL_FROM_ADDRESS", c.EmailFromAddress)
	case EmailProviderStub:
		if c.IsProduction() {
			errs = append(errs, errors.New("EMAIL_PROVIDER=stub is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER %q is not supported", c.EmailProvider))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
