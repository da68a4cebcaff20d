// Package config reads process-wide configuration from the environment,
// once, at startup. Collaborators receive their settings injected; nothing
// reads an API key or secret at a call site.
package config

import "os"

// Config holds every knob the storefront process needs.
type Config struct {
	// HTTPAddr is the listen address for the storefront server.
	HTTPAddr string

	// DatabasePath is the SQLite file holding orders, the order log and
	// the catalog tables.
	DatabasePath string

	// RedisAddr is the cart store backend. Empty means the in-process
	// memory store (development only).
	RedisAddr string

	// PaymentAPIBase and PaymentAPIKey configure the hosted-checkout client.
	PaymentAPIBase string
	PaymentAPIKey  string

	// WebhookSecret is the shared signing secret for inbound payment events.
	WebhookSecret string

	// PublicBaseURL is where the processor sends the customer back to;
	// the success URL carries the session-id placeholder the processor
	// substitutes on redirect.
	PublicBaseURL string

	// ThankYouURL and CatalogURL are the post-checkout browser targets.
	ThankYouURL string
	CatalogURL  string

	// SMTP relay for order notifications. Empty SMTPAddr selects the
	// log-only gateway.
	SMTPAddr string
	SMTPFrom string
	NotifyTo string
}

// Load reads the environment. Defaults are tuned for local development;
// production deployments set everything explicitly.
func Load() Config {
	base := getEnv("PUBLIC_BASE_URL", "http://localhost:8080")

	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/storefront.db"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		PaymentAPIBase: getEnv("PAYMENT_API_BASE", "https://api.payments.example.com"),
		PaymentAPIKey:  os.Getenv("PAYMENT_API_KEY"),
		WebhookSecret:  os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PublicBaseURL:  base,
		ThankYouURL:    getEnv("THANK_YOU_URL", base+"/thank-you"),
		CatalogURL:     getEnv("CATALOG_URL", base+"/"),
		SMTPAddr:       os.Getenv("SMTP_ADDR"),
		SMTPFrom:       getEnv("SMTP_FROM", "orders@localhost"),
		NotifyTo:       os.Getenv("NOTIFY_TO"),
	}
}

// SuccessURL is the redirect target registered with the processor. The
// placeholder is substituted by the processor with the real session ID.
func (c Config) SuccessURL() string {
	return c.PublicBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where an abandoning customer lands, cart intact.
func (c Config) CancelURL() string {
	return c.PublicBaseURL + "/checkout/cancel"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
