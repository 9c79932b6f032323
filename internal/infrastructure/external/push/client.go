// Package push implements the client for the push notification relay.
// The relay holds the Web Push subscriptions; this service only tells it
// which user to notify and with what payload. Deliveries are best-effort:
// failures are retried, then dropped behind a circuit breaker so the
// relay being down never blocks a toggle.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/pkg/circuitbreaker"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrRelayUnavailable is returned when the relay cannot be reached.
	ErrRelayUnavailable = shared.ErrPushRelayUnavailable

	// ErrRelayRejected is returned when the relay rejects the payload.
	ErrRelayRejected = shared.ErrPushRelayRejected

	// ErrDisabled is returned when push delivery is turned off.
	ErrDisabled = errors.New("push: delivery disabled")
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Notification is one message for the relay to deliver.
type Notification struct {
	// UserID identifies the subscription set on the relay side.
	UserID string `json:"user_id"`

	// Title is the notification title.
	Title string `json:"title"`

	// Body is the notification body text.
	Body string `json:"body"`

	// Tag collapses notifications of the same kind on the device.
	Tag string `json:"tag,omitempty"`

	// Data is an optional payload the service worker receives.
	Data map[string]interface{} `json:"data,omitempty"`
}

// relayResponse is the relay's reply.
type relayResponse struct {
	OK        bool   `json:"ok"`
	Delivered int    `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Sender is the interface the notification flow depends on.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Client talks to the push relay over HTTP with retry and a circuit breaker.
type Client struct {
	cfg        config.PushConfig
	httpClient *http.Client
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	log        *logger.Logger
}

// NewClient creates a push relay client.
func NewClient(cfg config.PushConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("push"))

	onStateChange := func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state change",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		retrier: retry.PushRelayRetrier(),
		breaker: circuitbreaker.PushRelayBreaker(onStateChange),
		log:     log,
	}
}

// Send delivers one notification through the relay.
// Rejected payloads (4xx) are permanent; relay errors (5xx, network) are
// retried and trip the breaker.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if c.cfg.Disabled {
		return ErrDisabled
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.post(ctx, n)
		})
	})
}

// post performs one HTTP attempt against the relay.
func (c *Client) post(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal notification: %w", err))
	}

	url := c.cfg.BaseURL + "/api/notify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("%w: %v", ErrRelayUnavailable, err))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("%w: status %d", ErrRelayUnavailable, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("%w: rate limited", ErrRelayUnavailable))
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("%w: status %d: %s", ErrRelayRejected, resp.StatusCode, string(data)))
	}

	var rr relayResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return retry.Permanent(fmt.Errorf("%w: bad response: %v", ErrRelayRejected, err))
	}
	if !rr.OK {
		return retry.Permanent(fmt.Errorf("%w: %s", ErrRelayRejected, rr.Error))
	}

	c.log.Debug("notification delivered",
		logger.UserID(n.UserID),
		logger.String("tag", n.Tag),
		logger.Int("delivered", rr.Delivered),
		logger.Latency(time.Since(start)),
	)

	return nil
}

// Healthy reports whether the breaker currently allows requests.
func (c *Client) Healthy() bool {
	return !c.breaker.IsOpen()
}

// ══════════════════════════════════════════════════════════════════════════════
// NO-OP SENDER
// ══════════════════════════════════════════════════════════════════════════════

// NopSender discards notifications. Used when PUSH_DISABLED is set and in
// tests.
type NopSender struct{}

// Send discards the notification.
func (NopSender) Send(ctx context.Context, n Notification) error {
	return nil
}
