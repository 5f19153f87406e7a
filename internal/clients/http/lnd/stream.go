package lnd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// SubscribeSettlements opens /v1/invoices/subscribe and forwards settled
// invoices. The gateway streams one JSON object per update; non-settled
// updates are skipped. Opening is bounded by the unary timeout, reading is not.
func (c *Client) SubscribeSettlements(ctx context.Context) (<-chan domain.SettlementEvent, <-chan error, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(streamCtx, http.MethodGet, "/v1/invoices/subscribe", nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	type result struct {
		resp *http.Response
		err  error
	}
	opened := make(chan result, 1)
	go func() {
		resp, err := c.stream.Do(req)
		opened <- result{resp: resp, err: err}
	}()
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	var resp *http.Response
	select {
	case r := <-opened:
		if r.err != nil {
			cancel()
			return nil, nil, fmt.Errorf("%w: open invoice stream: %w", ports.ErrUpstreamUnavailable, r.err)
		}
		resp = r.resp
	case <-timer.C:
		cancel()
		go func() {
			if r := <-opened; r.resp != nil {
				r.resp.Body.Close()
			}
		}()
		return nil, nil, fmt.Errorf("%w: open invoice stream: timed out after %s", ports.ErrUpstreamUnavailable, c.timeout)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer cancel()
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, fmt.Errorf("%w: open invoice stream: %w", ports.ErrUpstreamUnavailable, rejection(resp.StatusCode, data))
	}

	events := make(chan domain.SettlementEvent)
	errs := make(chan error, 1)
	go func() {
		defer cancel()
		defer close(errs)
		defer close(events)
		defer resp.Body.Close()
		c.pump(streamCtx, json.NewDecoder(resp.Body), events, errs)
	}()
	return events, errs, nil
}

func (c *Client) pump(ctx context.Context, dec *json.Decoder, events chan<- domain.SettlementEvent, errs chan<- error) {
	for {
		var msg streamMessage
		if err := dec.Decode(&msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("stream ended")
			}
			errs <- fmt.Errorf("%w: invoice stream: %w", ports.ErrUpstreamUnavailable, err)
			return
		}
		if msg.Error != nil {
			errs <- fmt.Errorf("%w: invoice stream: %s", ports.ErrUpstreamUnavailable, msg.Error.text())
			return
		}
		if msg.Result == nil || !msg.Result.isSettled() {
			continue
		}
		event, err := toSettlementEvent(*msg.Result)
		if err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "skipping malformed invoice update", slog.String("error", err.Error()))
			continue
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func toSettlementEvent(inv invoice) (domain.SettlementEvent, error) {
	hash, err := hashToHex(inv.RHash)
	if err != nil || hash == "" {
		return domain.SettlementEvent{}, fmt.Errorf("malformed r_hash %q", inv.RHash)
	}
	amount := int64(inv.AmtPaidSat)
	if amount == 0 {
		amount = int64(inv.Value)
	}
	event := domain.SettlementEvent{
		PaymentHash: hash,
		AmountSats:  amount,
		Memo:        inv.Memo,
	}
	if inv.SettleDate > 0 {
		event.SettledAt = time.Unix(int64(inv.SettleDate), 0).UTC()
	}
	return event, nil
}
