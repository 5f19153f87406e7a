package lnd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var _ ports.LedgerClient = (*Client)(nil)

const maxErrorBody = 64 << 10

// Client talks to LND over its REST gateway. It keeps no payment state.
type Client struct {
	baseURL  string
	macaroon string
	timeout  time.Duration
	unary    *http.Client
	stream   *http.Client
	breaker  *gobreaker.CircuitBreaker[*response]
	logger   *slog.Logger
	now      func() time.Time
}

type response struct {
	status int
	body   []byte
}

// Option configures the client.
type Option func(*Client)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used to compute invoice expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a client from cfg. A missing macaroon file is logged and the
// client proceeds without the credential; the node will reject calls that need it.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := cfg.baseURL()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		timeout: cfg.timeout(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if path := strings.TrimSpace(cfg.MacaroonPath); path != "" {
		mac, err := LoadMacaroon(path)
		switch {
		case err == nil:
			c.macaroon = mac
		case errors.Is(err, os.ErrNotExist):
			c.logger.Warn("lnd macaroon not found, continuing without credential", slog.String("path", path))
		default:
			return nil, fmt.Errorf("load lnd macaroon: %w", err)
		}
	} else {
		c.logger.Warn("lnd macaroon path not configured, continuing without credential")
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.TLSClientConfig = tlsCfg
	transport := otelhttp.NewTransport(rt)
	c.unary = &http.Client{Transport: transport, Timeout: c.timeout}
	// Streams live for hours; only the context ends them.
	c.stream = &http.Client{Transport: transport}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "lnd-rest",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Caller cancellation is not a node failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !errors.Is(err, ports.ErrUpstreamUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("lnd circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c, nil
}

// CreateInvoice asks the node for a BOLT11 invoice.
func (c *Client) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (*domain.PaymentRequest, error) {
	body := addInvoiceRequest{
		Value: fmt.Sprintf("%d", req.AmountSats),
		Memo:  req.Memo,
	}
	if secs := int64(req.Expiry / time.Second); secs > 0 {
		body.Expiry = fmt.Sprintf("%d", secs)
	}
	issuedAt := c.now()
	var out addInvoiceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", body, &out); err != nil {
		return nil, err
	}
	hash, err := hashToHex(out.RHash)
	if err != nil || hash == "" {
		return nil, fmt.Errorf("lnd returned malformed r_hash %q", out.RHash)
	}
	expiry := req.Expiry
	if expiry <= 0 {
		// lnd's own default
		expiry = time.Hour
	}
	return &domain.PaymentRequest{
		PaymentRequest: out.PaymentRequest,
		PaymentHash:    hash,
		AmountSats:     req.AmountSats,
		ExpiresAt:      issuedAt.Add(expiry).UTC(),
	}, nil
}

// CheckSettlement polls one invoice. Communication failures answer false.
func (c *Client) CheckSettlement(ctx context.Context, paymentHash string) (bool, error) {
	hash, err := validateHash(paymentHash)
	if err != nil {
		return false, err
	}
	path, err := invoicePath(hash)
	if err != nil {
		return false, err
	}
	var inv invoice
	if err := c.do(ctx, http.MethodGet, path, nil, &inv); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelDebug, "lnd settlement poll failed",
			slog.String("payment_hash", hash),
			slog.String("error", err.Error()))
		return false, nil
	}
	return inv.isSettled(), nil
}

// GetInfo describes the node.
func (c *Client) GetInfo(ctx context.Context) (*ports.NodeInfo, error) {
	var out getInfoResponse
	if err := c.do(ctx, http.MethodGet, "/v1/getinfo", nil, &out); err != nil {
		return nil, err
	}
	return &ports.NodeInfo{
		Pubkey:         out.IdentityPubkey,
		Alias:          out.Alias,
		ActiveChannels: out.NumActiveChannels,
		SyncedToChain:  out.SyncedToChain,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode lnd request: %w", err)
		}
	}
	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ports.ErrUpstreamUnavailable, err)
		}
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode lnd response for %s: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.unary.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ports.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout {
			return nil, fmt.Errorf("%w: status %d", ports.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return nil, rejection(resp.StatusCode, data)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build lnd request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.macaroon != "" {
		req.Header.Set(MacaroonHeader, c.macaroon)
	}
	return req, nil
}

func rejection(status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var parsed errorStatus
	msg := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		msg = parsed.text()
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &ports.UpstreamRejectedError{StatusCode: status, Message: msg}
}
