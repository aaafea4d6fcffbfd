// Package webhook posts state change events as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Name is the configuration key of this trigger.
const Name = "webhook"

const (
	defaultTimeout  = 5 * time.Second
	defaultAttempts = 3
	defaultDelay    = 200 * time.Millisecond
)

// Plugin posts every event to a configured URL.
type Plugin struct {
	log      zerolog.Logger
	client   *http.Client
	url      string
	headers  map[string]string
	attempts uint
	delay    time.Duration
}

// New is the trigger.Factory for the webhook plugin.
func New(logger zerolog.Logger) (trigger.Plugin, error) {
	return &Plugin{
		log:      logger,
		client:   &http.Client{Timeout: defaultTimeout},
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}, nil
}

// Name implements trigger.Plugin.
func (p *Plugin) Name() string { return Name }

// Configure reads url, timeout, attempts and header.* keys.
func (p *Plugin) Configure(params map[string]string) error {
	cfg := trigger.Params(params)
	if err := cfg.Require("url"); err != nil {
		return err
	}
	parsed, err := url.Parse(cfg["url"])
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	timeout, err := cfg.Seconds("timeout", defaultTimeout)
	if err != nil {
		return err
	}
	attempts, err := cfg.Int("attempts", defaultAttempts)
	if err != nil {
		return err
	}
	if attempts < 1 {
		return fmt.Errorf("attempts must be >= 1, got %d", attempts)
	}

	p.url = parsed.String()
	p.client.Timeout = timeout
	p.attempts = uint(attempts)
	p.headers = cfg.Prefixed("header.")
	return nil
}

// Handle implements trigger.Plugin. Server errors are retried with backoff,
// client errors are returned immediately.
func (p *Plugin) Handle(ctx context.Context, evt event.StateChangeEvent) error {
	body, err := json.Marshal(evt.Payload())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return retry.Do(
		func() error {
			return p.post(ctx, body)
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			p.log.Warn().Err(err).Uint("attempt", attempt+1).Str("target", evt.Name).Msg("webhook delivery failed, retrying")
		}),
	)
}

func (p *Plugin) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "netsav")
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Unrecoverable(fmt.Errorf("webhook rejected event: %s", resp.Status))
	default:
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
}
