// Package payments talks to the card processor behind a circuit breaker.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"rentme/internal/app/policies"
)

var ErrProcessorUnavailable = errors.New("payments: processor unavailable")

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "payments",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// a decline is a business answer, not a processor fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, policies.ErrPaymentDeclined)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (c *Client) Capture(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	return c.call(ctx, "/v1/payments/capture", req)
}

func (c *Client) Refund(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	return c.call(ctx, "/v1/payments/refund", req)
}

func (c *Client) call(ctx context.Context, path string, req policies.PaymentRequest) (policies.PaymentResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, path, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return policies.PaymentResult{}, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
		}
		return policies.PaymentResult{}, err
	}
	return out.(policies.PaymentResult), nil
}

func (c *Client) post(ctx context.Context, path string, req policies.PaymentRequest) (policies.PaymentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return policies.PaymentResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return policies.PaymentResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.BookingID+path)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return policies.PaymentResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return policies.PaymentResult{}, policies.ErrPaymentDeclined
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return policies.PaymentResult{}, fmt.Errorf("payments: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var result policies.PaymentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return policies.PaymentResult{}, fmt.Errorf("payments: decode response: %w", err)
	}
	return result, nil
}

var _ policies.PaymentsPort = (*Client)(nil)
