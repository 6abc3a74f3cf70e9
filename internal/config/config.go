package config

import (
	"fmt"
	"os"
	"strings"
)

// Store drivers selectable via CVFORGE_STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverREST   = "rest"
)

// Config holds all runtime configuration. It is built once at startup and
// passed into each component; nothing reads the environment after Load.
type Config struct {
	Port     string
	BaseURL  string
	LogLevel string

	// SessionSecret signs session tokens. Required.
	SessionSecret string

	// Store selection. DriverSQLite needs DBPath, DriverREST needs
	// StoreURL and StoreAPIKey.
	StoreDriver string
	DBPath      string
	StoreURL    string
	StoreAPIKey string

	// Email delivery. Empty token disables outbound email.
	PostmarkToken string
	FromEmail     string

	// Purchase providers. An empty secret disables the matching endpoint.
	PayhipSecret    string
	EtsyAPIKey      string
	EtsyAccessToken string
	EtsyShopID      string
	LicenseURL      string
}

// Load reads configuration from the environment and validates required keys.
// A missing required value is an error so the process fails at startup
// instead of on the first request that needs the value.
func Load() (*Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:            getenv("CVFORGE_PORT"),
		BaseURL:         getenv("CVFORGE_BASE_URL"),
		LogLevel:        getenv("CVFORGE_LOG_LEVEL"),
		SessionSecret:   getenv("CVFORGE_SESSION_SECRET"),
		StoreDriver:     getenv("CVFORGE_STORE_DRIVER"),
		DBPath:          getenv("CVFORGE_DB_PATH"),
		StoreURL:        getenv("CVFORGE_STORE_URL"),
		StoreAPIKey:     getenv("CVFORGE_STORE_API_KEY"),
		PostmarkToken:   getenv("CVFORGE_POSTMARK_TOKEN"),
		FromEmail:       getenv("CVFORGE_FROM_EMAIL"),
		PayhipSecret:    getenv("CVFORGE_PAYHIP_SECRET"),
		EtsyAPIKey:      getenv("CVFORGE_ETSY_API_KEY"),
		EtsyAccessToken: getenv("CVFORGE_ETSY_ACCESS_TOKEN"),
		EtsyShopID:      getenv("CVFORGE_ETSY_SHOP_ID"),
		LicenseURL:      getenv("CVFORGE_LICENSE_URL"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverSQLite
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "cvforge.db"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.SessionSecret == "" {
		missing = append(missing, "CVFORGE_SESSION_SECRET")
	}

	switch c.StoreDriver {
	case DriverSQLite:
		// DBPath is defaulted above.
	case DriverREST:
		if c.StoreURL == "" {
			missing = append(missing, "CVFORGE_STORE_URL")
		}
		if c.StoreAPIKey == "" {
			missing = append(missing, "CVFORGE_STORE_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}

	if c.PostmarkToken != "" && c.FromEmail == "" {
		missing = append(missing, "CVFORGE_FROM_EMAIL")
	}

	// Etsy needs all three values to make authenticated order lookups.
	if c.EtsyEnabled() {
		if c.EtsyAPIKey == "" {
			missing = append(missing, "CVFORGE_ETSY_API_KEY")
		}
		if c.EtsyAccessToken == "" {
			missing = append(missing, "CVFORGE_ETSY_ACCESS_TOKEN")
		}
		if c.EtsyShopID == "" {
			missing = append(missing, "CVFORGE_ETSY_SHOP_ID")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// EtsyEnabled reports whether any Etsy setting is present. Partially
// configured Etsy is a validation error, not a silently disabled feature.
func (c *Config) EtsyEnabled() bool {
	return c.EtsyAPIKey != "" || c.EtsyAccessToken != "" || c.EtsyShopID != ""
}

// PayhipEnabled reports whether the Payhip webhook endpoint should be mounted.
func (c *Config) PayhipEnabled() bool {
	return c.PayhipSecret != ""
}

// EmailEnabled reports whether outbound email is configured.
func (c *Config) EmailEnabled() bool {
	return c.PostmarkToken != ""
}
