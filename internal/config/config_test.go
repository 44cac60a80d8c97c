package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("CMS_CACHE_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.EmailProvider != EmailProviderSendGrid {
		t.Fatalf("expected sendgrid default provider, got %s", cfg.EmailProvider)
	}
	if cfg.CMSCacheTTL != 60*time.Second {
		t.Fatalf("expected 60s cms cache ttl, got %s", cfg.CMSCacheTTL)
	}
	if cfg.StripeSignatureTolerance != 5*time.Minute {
		t.Fatalf("expected 5m signature tolerance, got %s", cfg.StripeSignatureTolerance)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("CMS_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("BOOKING_RATE_LIMIT_RPS", "2.5")
	t.Setenv("NOTIFY_RETRY_MAX_ATTEMPTS", "3")
	cfg := Load()
	if cfg.Port != "9090" || !cfg.IsProduction() {
		t.Fatalf("expected overrides, got port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.EmailProvider != EmailProviderSES {
		t.Fatalf("expected provider normalised to ses, got %q", cfg.EmailProvider)
	}
	if cfg.CMSCacheTTL != 2*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.CMSCacheTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.BookingRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.BookingRateLimitRPS)
	}
	if cfg.NotifyRetryMaxAttempts != 3 {
		t.Fatalf("expected retry attempts override, got %d", cfg.NotifyRetryMaxAttempts)
	}
}

func TestValidateReportsAllMissingKeys(t *testing.T) {
	cfg := &Config{EmailProvider: EmailProviderSendGrid}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"DATABASE_URL", "STRIPE_WEBHOOK_SECRET", "MICROCMS_API_KEY", "MICROCMS_SERVICE_DOMAIN", "SENDGRID_API_KEY", "EMAIL_FROM_ADDRESS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to mention %s, got %v", key, err)
		}
	}
}

func TestValidateStubProviderRules(t *testing.T) {
	cfg := &Config{
		Env:                   "development",
		DatabaseURL:           "postgres://localhost/consultbook",
		StripeWebhookSecret:   "whsec_test",
		MicroCMSAPIKey:        "key",
		MicroCMSServiceDomain: "moment",
		EmailProvider:         EmailProviderStub,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected stub provider to be valid in development: %v", err)
	}

	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected stub provider to be rejected in production")
	}

	cfg.Env = "development"
	cfg.EmailProvider = "smtp"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "smtp") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CONSULTBOOK_DOTENV_PROBE=from-file\nPORT=7000\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PORT", "9999")
	t.Setenv("CONSULTBOOK_DOTENV_PROBE", "")
	os.Unsetenv("CONSULTBOOK_DOTENV_PROBE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CONSULTBOOK_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("PORT"); got != "9999" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
