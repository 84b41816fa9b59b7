package acquirer

import (
	"os"
	"time"

	"github.com/eduwebgroup/affipay/internal/affipay"
)

// Config is the configuration for one gateway merchant account plus the
// service's own HTTP surface.
type Config struct {
	HTTPAddr string

	// Environment selects sandbox or production gateway endpoints. Outside
	// production, charged amounts are capped to bound test spend.
	Environment affipay.Environment

	// Username and Password are the merchant credentials issued by the
	// gateway. The password is SHA-256 hashed on the wire.
	Username string
	Password string

	// Optional per-environment base URL overrides; unset values fall back
	// to the gateway's sandbox defaults.
	URLs affipay.URLOverrides

	// HTTPTimeout bounds every gateway call.
	HTTPTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:    "localhost:8080",
		Environment: affipay.EnvSandbox,
		HTTPTimeout: 10 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, with
// DefaultConfig values as fallbacks.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	if env := os.Getenv("AFFIPAY_ENVIRONMENT"); env != "" {
		cfg.Environment = affipay.Environment(env)
	}
	cfg.Username = os.Getenv("AFFIPAY_USERNAME")
	cfg.Password = os.Getenv("AFFIPAY_PASSWORD")
	cfg.URLs = affipay.URLOverrides{
		ProductionAuth:      os.Getenv("AFFIPAY_PROD_AUTH_URL"),
		ProductionEcommerce: os.Getenv("AFFIPAY_PROD_ECOMMERCE_URL"),
		SandboxAuth:         os.Getenv("AFFIPAY_SANDBOX_AUTH_URL"),
		SandboxEcommerce:    os.Getenv("AFFIPAY_SANDBOX_ECOMMERCE_URL"),
	}
	if d, err := time.ParseDuration(getenv("AFFIPAY_HTTP_TIMEOUT", "")); err == nil && d > 0 {
		cfg.HTTPTimeout = d
	}
	return cfg
}

// Endpoints resolves the gateway base URLs for the configured environment.
func (c *Config) Endpoints() affipay.Endpoints {
	return affipay.ResolveEndpoints(c.Environment, c.URLs)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
