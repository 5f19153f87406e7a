package api

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.temporal.io/sdk/client"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/clients/http/lnd"
)

const (
	LedgerModeLND    = "lnd"
	LedgerModeMemory = "memory"
)

// Config carries environment-driven settings for the API, worker and expirer processes.
type Config struct {
	Port              string        `mapstructure:"PORT"`
	PostgresDSN       string        `mapstructure:"POSTGRES_DSN"`
	ProductsFile      string        `mapstructure:"PRODUCTS_FILE"`
	LedgerMode        string        `mapstructure:"LEDGER_MODE"`
	LNDHost           string        `mapstructure:"LND_HOST"`
	LNDRESTPort       int           `mapstructure:"LND_REST_PORT"`
	LNDDir            string        `mapstructure:"LND_DIR"`
	LNDNetwork        string        `mapstructure:"LND_NETWORK"`
	LNDMacaroonPath   string        `mapstructure:"LND_MACAROON_PATH"`
	LNDTLSCertPath    string        `mapstructure:"LND_TLS_CERT_PATH"`
	LNDTLSSkipVerify  bool          `mapstructure:"LND_TLS_SKIP_VERIFY"`
	LNDTimeout        time.Duration `mapstructure:"LND_TIMEOUT"`
	PaymentTimeout    time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	EscrowDelay       time.Duration `mapstructure:"ESCROW_RELEASE_DELAY"`
	WatcherBackoff    time.Duration `mapstructure:"WATCHER_BACKOFF"`
	TemporalAddress   string        `mapstructure:"TEMPORAL_ADDRESS"`
	TemporalNamespace string        `mapstructure:"TEMPORAL_NAMESPACE"`
	TemporalDisabled  bool          `mapstructure:"TEMPORAL_DISABLED"`
	ExpirySweepLimit  int           `mapstructure:"EXPIRY_SWEEP_LIMIT"`
}

var defaults = map[string]any{
	"PORT":                 "8080",
	"PRODUCTS_FILE":        "data/products.json",
	"LEDGER_MODE":          LedgerModeLND,
	"LND_HOST":             "127.0.0.1",
	"LND_REST_PORT":        8081,
	"LND_NETWORK":          "regtest",
	"LND_TLS_SKIP_VERIFY":  false,
	"LND_TIMEOUT":          lnd.DefaultTimeout,
	"PAYMENT_TIMEOUT":      time.Hour,
	"ESCROW_RELEASE_DELAY": 24 * time.Hour,
	"WATCHER_BACKOFF":      5 * time.Second,
	"TEMPORAL_ADDRESS":     client.DefaultHostPort,
	"TEMPORAL_NAMESPACE":   client.DefaultNamespace,
	"TEMPORAL_DISABLED":    false,
	"EXPIRY_SWEEP_LIMIT":   500,
}

var unbound = []string{"POSTGRES_DSN", "LND_DIR", "LND_MACAROON_PATH", "LND_TLS_CERT_PATH"}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs []error
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("load %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	for _, key := range unbound {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.LedgerMode = strings.ToLower(strings.TrimSpace(c.LedgerMode))
	c.LNDDir = strings.TrimSpace(c.LNDDir)
	c.LNDMacaroonPath = strings.TrimSpace(c.LNDMacaroonPath)
	c.LNDTLSCertPath = strings.TrimSpace(c.LNDTLSCertPath)
	if c.LNDDir != "" {
		if c.LNDMacaroonPath == "" {
			c.LNDMacaroonPath = lnd.MacaroonPathFor(c.LNDDir, c.LNDNetwork)
		}
		if c.LNDTLSCertPath == "" {
			c.LNDTLSCertPath = lnd.TLSCertPathFor(c.LNDDir)
		}
	}
}

// Validate rejects settings the processes cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	switch c.LedgerMode {
	case LedgerModeLND:
		if strings.TrimSpace(c.LNDHost) == "" {
			errs = append(errs, errors.New("LND_HOST must not be empty"))
		}
		if c.LNDRESTPort <= 0 || c.LNDRESTPort > 65535 {
			errs = append(errs, fmt.Errorf("LND_REST_PORT must be a valid port, got %d", c.LNDRESTPort))
		}
	case LedgerModeMemory:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_MODE must be %q or %q, got %q", LedgerModeLND, LedgerModeMemory, c.LedgerMode))
	}
	for name, d := range map[string]time.Duration{
		"LND_TIMEOUT":     c.LNDTimeout,
		"PAYMENT_TIMEOUT": c.PaymentTimeout,
		"WATCHER_BACKOFF": c.WatcherBackoff,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.EscrowDelay < 0 {
		errs = append(errs, fmt.Errorf("ESCROW_RELEASE_DELAY must not be negative, got %s", c.EscrowDelay))
	}
	if c.ExpirySweepLimit <= 0 {
		errs = append(errs, fmt.Errorf("EXPIRY_SWEEP_LIMIT must be positive, got %d", c.ExpirySweepLimit))
	}
	return errors.Join(errs...)
}

// LNDConfig is the client configuration derived from the LND_* keys.
func (c Config) LNDConfig() lnd.Config {
	return lnd.Config{
		Host:               c.LNDHost,
		RESTPort:           c.LNDRESTPort,
		MacaroonPath:       c.LNDMacaroonPath,
		TLSCertPath:        c.LNDTLSCertPath,
		InsecureSkipVerify: c.LNDTLSSkipVerify,
		Timeout:            c.LNDTimeout,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
