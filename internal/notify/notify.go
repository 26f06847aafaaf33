// Package notify delivers engine lifecycle events to external channels.
// Delivery is fire-and-forget: a failed or slow channel never blocks the
// trading path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/config"
	"tradebot/internal/stream"
	"tradebot/pkg/utils"
)

// WebhookNotifier posts lifecycle events to an HTTP webhook as JSON.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	retry   utils.RetryConfig
	log     zerolog.Logger

	wg sync.WaitGroup
}

// NewWebhookNotifier creates a webhook notifier from configuration.
func NewWebhookNotifier(cfg config.WebhookConfig, log zerolog.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: timeout},
		retry:   utils.DefaultRetryConfig(),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Run consumes events from the channel until it is closed, posting each
// to the webhook. Failures are logged and dropped.
func (w *WebhookNotifier) Run(ctx context.Context, events <-chan stream.Event) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for event := range events {
			if err := w.Send(ctx, event); err != nil {
				w.log.Warn().Err(err).
					Str("event", string(event.Type)).
					Str("symbol", event.Symbol).
					Msg("webhook delivery failed")
			}
		}
	}()
}

// Wait blocks until the consumer goroutine started by Run exits.
func (w *WebhookNotifier) Wait() {
	w.wg.Wait()
}

// Send posts a single event to the webhook with retry.
func (w *WebhookNotifier) Send(ctx context.Context, event stream.Event) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      event.Type,
		"symbol":    event.Symbol,
		"timestamp": event.Timestamp.Format(time.RFC3339),
	}
	if event.Reason != "" {
		payload["reason"] = event.Reason
	}
	if event.Trade != nil {
		payload["trade"] = map[string]interface{}{
			"symbol":      event.Trade.Symbol,
			"side":        event.Trade.Side,
			"shares":      event.Trade.Shares,
			"entry_price": event.Trade.EntryPrice,
			"exit_price":  event.Trade.ExitPrice,
			"pnl":         event.Trade.PnL,
			"pnl_pct":     event.Trade.PnLPct,
			"exit_reason": event.Trade.ExitReason,
		}
	}
	if event.Position != nil {
		payload["position"] = map[string]interface{}{
			"symbol":      event.Position.Symbol,
			"side":        event.Position.Side,
			"shares":      event.Position.Shares,
			"entry_price": event.Position.EntryPrice,
			"stop_loss":   event.Position.StopLoss,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return utils.Retry(ctx, w.retry, func() error {
		return w.post(ctx, body)
	})
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TradeBot/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
