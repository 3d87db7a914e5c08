package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/events"
)

func TestNewSaleModifiedTaskCarriesPayload(t *testing.T) {
	payload := events.SaleModifiedPayload{
		Action:     "created",
		CartID:     uuid.New(),
		SaleNumber: 987654321,
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	task, err := events.NewSaleModifiedTask(payload)
	require.NoError(t, err)
	require.Equal(t, events.TypeSaleModified, task.Type())

	var decoded events.SaleModifiedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, payload, decoded)
}

func TestNilBusEmitIsNoop(t *testing.T) {
	var bus *events.Bus
	require.NoError(t, bus.Emit(context.Background(), "created", uuid.New(), 123456789))
}
