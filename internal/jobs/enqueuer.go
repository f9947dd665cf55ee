package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/events"
)

// Enqueuer fans one emitted event out to every configured webhook endpoint
// as individual asynq tasks. It implements events.DeliveryScheduler.
type Enqueuer struct {
	client    *asynq.Client
	endpoints []string
	logger    zerolog.Logger
}

// NewEnqueuer constructs an Enqueuer. An empty endpoint list is valid and
// makes Schedule a no-op.
func NewEnqueuer(client *asynq.Client, endpoints []string, logger zerolog.Logger) *Enqueuer {
	return &Enqueuer{client: client, endpoints: endpoints, logger: logger}
}

// Schedule enqueues one delivery task per endpoint. Endpoints that fail to
// enqueue are reported together; the remaining endpoints still get tasks.
func (e *Enqueuer) Schedule(ctx context.Context, event events.Event) error {
	if e == nil || e.client == nil {
		return errors.New("jobs: task client not configured")
	}
	var joined error
	for _, endpoint := range e.endpoints {
		task, err := NewWebhookDeliveryTask(endpoint, event)
		if err != nil {
			joined = errors.Join(joined, err)
			continue
		}
		info, err := e.client.EnqueueContext(ctx, task)
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("jobs: enqueue %s: %w", endpoint, err))
			continue
		}
		e.logger.Debug().
			Str("task_id", info.ID).
			Str("topic", event.Topic).
			Str("endpoint", endpoint).
			Msg("webhook delivery enqueued")
	}
	return joined
}
