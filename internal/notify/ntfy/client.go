// Package ntfy implements a push notifier backed by ntfy.sh.
package ntfy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public ntfy.sh endpoint.
const DefaultBaseURL = "https://ntfy.sh"

// defaultTimeout bounds each delivery attempt; a slow or dead ntfy server
// must never stall the monitoring flow.
const defaultTimeout = 10 * time.Second

// Config controls the ntfy client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// SendsPerMinute bounds the delivery rate. Zero disables the limiter.
	SendsPerMinute float64
	Priority       string
	Tags           string
}

// Client posts messages to an ntfy topic. Deliveries are single attempts:
// failures are reported to the caller for logging, never retried.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Priority == "" {
		cfg.Priority = "urgent"
	}
	if cfg.Tags == "" {
		cfg.Tags = "moneybag,rotating_light"
	}
	var limiter *rate.Limiter
	if cfg.SendsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendsPerMinute/60), 1)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
}

// Send posts one message to the topic. The attempt is bounded by the client
// timeout and the configured rate limit.
func (c *Client) Send(ctx context.Context, topic, title, message string) error {
	if topic == "" {
		return fmt.Errorf("ntfy topic must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ntfy rate limit wait: %w", err)
		}
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", c.cfg.Priority)
	req.Header.Set("Tags", c.cfg.Tags)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post ntfy message: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close is best-effort

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy status %s: %s", resp.Status, string(body))
	}

	c.logger.Debug("ntfy notification delivered",
		zap.String("topic", topic),
		zap.String("title", title),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
