package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-api/internal/sale"
)

// TypeSaleModified is the task type enqueued after every committed cart change.
const TypeSaleModified = "sale:modified"

// SaleModifiedPayload describes one committed lifecycle change.
type SaleModifiedPayload struct {
	Action     string    `json:"action"`
	CartID     uuid.UUID `json:"cartId"`
	SaleNumber int64     `json:"saleNumber"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewSaleModifiedTask builds the asynq task for a lifecycle change.
func NewSaleModifiedTask(p SaleModifiedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal sale modified payload: %w", err)
	}
	return asynq.NewTask(TypeSaleModified, payload), nil
}

// Bus enqueues lifecycle notifications onto the task queue. A nil bus or
// client is a no-op so the API can run without a queue in development.
type Bus struct {
	Client *asynq.Client
	Now    func() time.Time
	Logger zerolog.Logger
}

var _ sale.Emitter = (*Bus)(nil)

// Emit enqueues a fire-and-forget notification for a committed change.
func (b *Bus) Emit(ctx context.Context, action string, cartID uuid.UUID, saleNumber int64) error {
	if b == nil || b.Client == nil {
		return nil
	}
	now := time.Now().UTC()
	if b.Now != nil {
		now = b.Now()
	}
	task, err := NewSaleModifiedTask(SaleModifiedPayload{
		Action:     action,
		CartID:     cartID,
		SaleNumber: saleNumber,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}
	info, err := b.Client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeSaleModified, err)
	}
	b.Logger.Debug().
		Str("task_id", info.ID).
		Str("action", action).
		Int64("sale_number", saleNumber).
		Msg("sale notification enqueued")
	return nil
}
