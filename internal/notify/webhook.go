package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-api/internal/events"
	"github.com/noah-isme/sales-api/internal/obs"
)

// Notifier delivers committed sale lifecycle changes to an external webhook.
// With no webhook configured it only logs, which keeps local development
// working without a receiver.
type Notifier struct {
	WebhookURL string
	HTTP       *http.Client
	Logger     zerolog.Logger
}

// HandleSaleModified processes one queued lifecycle notification. Delivery
// failures return an error so asynq retries with backoff.
func (n *Notifier) HandleSaleModified(ctx context.Context, t *asynq.Task) error {
	var payload events.SaleModifiedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		countNotification("malformed")
		return fmt.Errorf("unmarshal %s payload: %w: %w", events.TypeSaleModified, err, asynq.SkipRetry)
	}

	log := n.Logger.With().
		Str("action", payload.Action).
		Str("cart_id", payload.CartID.String()).
		Int64("sale_number", payload.SaleNumber).
		Logger()

	if n.WebhookURL == "" {
		log.Info().Msg("sale modified")
		countNotification("logged")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient().Do(req)
	if err != nil {
		countNotification("error")
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		countNotification("error")
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	log.Info().Int("status", resp.StatusCode).Msg("sale notification delivered")
	countNotification("delivered")
	return nil
}

func (n *Notifier) httpClient() *http.Client {
	if n.HTTP != nil {
		return n.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func countNotification(result string) {
	if obs.SaleNotificationsTotal != nil {
		obs.SaleNotificationsTotal.WithLabelValues(result).Inc()
	}
}

// Mux builds the asynq handler mux for the worker process.
func (n *Notifier) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(events.TypeSaleModified, n.HandleSaleModified)
	return mux
}
