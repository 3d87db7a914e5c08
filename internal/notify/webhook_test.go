package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/events"
	"github.com/noah-isme/sales-api/internal/notify"
)

func newTask(t *testing.T, p events.SaleModifiedPayload) *asynq.Task {
	t.Helper()
	task, err := events.NewSaleModifiedTask(p)
	require.NoError(t, err)
	return task
}

func TestHandleSaleModifiedDeliversWebhook(t *testing.T) {
	var received events.SaleModifiedPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := &notify.Notifier{WebhookURL: server.URL, Logger: zerolog.Nop()}
	payload := events.SaleModifiedPayload{
		Action:     "created",
		CartID:     uuid.New(),
		SaleNumber: 123456789,
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, n.HandleSaleModified(context.Background(), newTask(t, payload)))
	require.Equal(t, payload.Action, received.Action)
	require.Equal(t, payload.CartID, received.CartID)
	require.Equal(t, payload.SaleNumber, received.SaleNumber)
}

func TestHandleSaleModifiedRetriesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := &notify.Notifier{WebhookURL: server.URL, Logger: zerolog.Nop()}
	err := n.HandleSaleModified(context.Background(), newTask(t, events.SaleModifiedPayload{Action: "updated"}))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSaleModifiedLogsWithoutWebhook(t *testing.T) {
	n := &notify.Notifier{Logger: zerolog.Nop()}
	require.NoError(t, n.HandleSaleModified(context.Background(), newTask(t, events.SaleModifiedPayload{Action: "cancelled"})))
}

func TestHandleSaleModifiedSkipsMalformedPayload(t *testing.T) {
	n := &notify.Notifier{Logger: zerolog.Nop()}
	err := n.HandleSaleModified(context.Background(), asynq.NewTask(events.TypeSaleModified, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
