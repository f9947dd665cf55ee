// Package jobs holds the asynq task definitions and handlers for
// asynchronous work, currently webhook delivery of domain events.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-billing/internal/events"
)

// TypeWebhookDeliver is the asynq task type for webhook deliveries.
const TypeWebhookDeliver = "webhook:deliver"

// QueueWebhooks is the asynq queue webhook tasks are routed to.
const QueueWebhooks = "webhooks"

// WebhookPayload is the wire form of a scheduled delivery. One task carries
// one event to one endpoint, so endpoint failures retry independently.
type WebhookPayload struct {
	Endpoint string       `json:"endpoint"`
	Event    events.Event `json:"event"`
}

// NewWebhookDeliveryTask builds the asynq task for one event/endpoint pair.
func NewWebhookDeliveryTask(endpoint string, event events.Event) (*asynq.Task, error) {
	if endpoint == "" {
		return nil, errors.New("jobs: webhook endpoint is required")
	}
	data, err := json.Marshal(WebhookPayload{Endpoint: endpoint, Event: event})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode webhook payload: %w", err)
	}
	return asynq.NewTask(TypeWebhookDeliver, data, asynq.Queue(QueueWebhooks), asynq.MaxRetry(8)), nil
}

func decodeWebhookPayload(task *asynq.Task) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("jobs: decode webhook payload: %w", err)
	}
	if payload.Endpoint == "" {
		return WebhookPayload{}, errors.New("jobs: webhook payload missing endpoint")
	}
	return payload, nil
}
