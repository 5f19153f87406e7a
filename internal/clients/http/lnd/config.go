package lnd

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every unary call to the node.
const DefaultTimeout = 10 * time.Second

// MacaroonHeader carries the hex-encoded admin macaroon on every request.
const MacaroonHeader = "Grpc-Metadata-macaroon"

// Config describes how to reach an LND node's REST gateway.
type Config struct {
	// BaseURL overrides Host/RESTPort, e.g. "https://127.0.0.1:8081".
	BaseURL      string
	Host         string
	RESTPort     int
	MacaroonPath string
	TLSCertPath  string
	// InsecureSkipVerify disables certificate checks. Development only.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

func (c Config) baseURL() (string, error) {
	if base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); base != "" {
		return base, nil
	}
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return "", errors.New("lnd host is required")
	}
	if c.RESTPort <= 0 {
		return "", fmt.Errorf("lnd rest port must be positive, got %d", c.RESTPort)
	}
	return "https://" + net.JoinHostPort(host, strconv.Itoa(c.RESTPort)), nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true // #nosec G402
		return cfg, nil
	}
	path := strings.TrimSpace(c.TLSCertPath)
	if path == "" {
		return cfg, nil
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lnd tls cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("lnd tls cert %s contains no certificates", path)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// MacaroonPathFor returns the admin macaroon location inside an LND data
// directory, as laid out by Polar and lnd itself.
func MacaroonPathFor(lndDir, network string) string {
	if strings.TrimSpace(lndDir) == "" {
		return ""
	}
	if network == "" {
		network = "regtest"
	}
	return filepath.Join(lndDir, "data", "chain", "bitcoin", network, "admin.macaroon")
}

// TLSCertPathFor returns the TLS certificate location inside an LND data directory.
func TLSCertPathFor(lndDir string) string {
	if strings.TrimSpace(lndDir) == "" {
		return ""
	}
	return filepath.Join(lndDir, "tls.cert")
}

// LoadMacaroon reads a binary macaroon file and returns it hex-encoded.
func LoadMacaroon(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
