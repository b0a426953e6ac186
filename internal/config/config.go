package config

import (
	"fmt"
	"os"
	"strings"
)

// Config captures runtime configuration values used by the backend service.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18111".
	ServerAddress string

	// DatabaseURL is the Postgres DSN used by database/sql.
	DatabaseURL string

	// StripeSecretKey authenticates calls to the Stripe REST API.
	StripeSecretKey string

	// StripeWebhookSecret verifies the signature on incoming webhook events.
	StripeWebhookSecret string

	// ResendAPIKey authenticates calls to the Resend email API. When empty,
	// outgoing emails are logged instead of sent.
	ResendAPIKey string

	// EmailFrom is the sender address for transactional emails.
	EmailFrom string

	// FirebaseCredentialsFile is the path to the service-account JSON used to
	// verify identity tokens. When empty, application default credentials
	// apply.
	FirebaseCredentialsFile string

	// FrontendBaseURL is the origin checkout sessions redirect back to.
	FrontendBaseURL string

	// CORSAllowedOrigins lists the origins allowed to call the API.
	CORSAllowedOrigins []string
}

const (
	defaultServerAddress   = ":18111"
	defaultEmailFrom       = "Dustout <bookings@dustout.co.uk>"
	defaultFrontendBaseURL = "http://localhost:3000"

	envServerAddress       = "BACKEND_ADDR"
	envDatabaseURL         = "DATABASE_URL"
	envStripeSecretKey     = "STRIPE_SECRET_KEY"
	envStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	envResendAPIKey        = "RESEND_API_KEY"
	envEmailFrom           = "EMAIL_FROM"
	envFirebaseCredentials = "FIREBASE_CREDENTIALS_FILE"
	envFrontendBaseURL     = "FRONTEND_BASE_URL"
	envCORSAllowedOrigins  = "CORS_ALLOWED_ORIGINS"
)

// Load reads configuration from environment variables, applies defaults, and returns
// a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	cfg := Config{
		ServerAddress:           firstNonEmpty(os.Getenv(envServerAddress), defaultServerAddress),
		DatabaseURL:             os.Getenv(envDatabaseURL),
		StripeSecretKey:         os.Getenv(envStripeSecretKey),
		StripeWebhookSecret:     os.Getenv(envStripeWebhookSecret),
		ResendAPIKey:            os.Getenv(envResendAPIKey),
		EmailFrom:               firstNonEmpty(os.Getenv(envEmailFrom), defaultEmailFrom),
		FirebaseCredentialsFile: os.Getenv(envFirebaseCredentials),
		FrontendBaseURL:         firstNonEmpty(os.Getenv(envFrontendBaseURL), defaultFrontendBaseURL),
		CORSAllowedOrigins:      splitOrigins(os.Getenv(envCORSAllowedOrigins)),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%s is required", envDatabaseURL)
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("%s is required", envStripeSecretKey)
	}
	if cfg.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("%s is required", envStripeWebhookSecret)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
