package jobs

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/resilience"
)

// Deliverer posts scheduled events to their webhook endpoints. Failed
// deliveries return an error so asynq retries with its own backoff; the
// wrapped HTTP client only smooths over short transient blips per attempt.
type Deliverer struct {
	Secret string
	HTTP   resilience.HTTPClient
	Logger zerolog.Logger
}

// NewDeliverer builds a Deliverer with a breaker scoped to webhook traffic.
func NewDeliverer(secret string, logger zerolog.Logger) *Deliverer {
	return &Deliverer{
		Secret: secret,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker(10, 0.5, 30*time.Second).WithTarget("webhook-delivery").WithLogger(logger),
			MaxAttempts: 2,
			Timeout:     10 * time.Second,
		},
		Logger: logger,
	}
}

// ProcessTask handles one webhook:deliver task.
func (d *Deliverer) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := decodeWebhookPayload(task)
	if err != nil {
		// Malformed payloads can never succeed; skip retries.
		return fmt.Errorf("%w: %s", asynq.SkipRetry, err)
	}

	body, err := json.Marshal(payload.Event)
	if err != nil {
		return fmt.Errorf("%w: jobs: encode event: %s", asynq.SkipRetry, err)
	}

	start := time.Now()
	err = d.deliver(ctx, payload.Endpoint, payload.Event.ID.String(), body)
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.WebhookDeliveriesTotal != nil {
		obs.WebhookDeliveriesTotal.WithLabelValues(result).Inc()
	}
	if obs.WebhookAttemptLatency != nil {
		obs.WebhookAttemptLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		d.Logger.Warn().Err(err).
			Str("endpoint", payload.Endpoint).
			Str("topic", payload.Event.Topic).
			Msg("webhook delivery failed")
		return err
	}
	d.Logger.Info().
		Str("endpoint", payload.Endpoint).
		Str("topic", payload.Event.Topic).
		Msg("webhook delivered")
	return nil
}

func (d *Deliverer) deliver(ctx context.Context, endpoint, eventID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", eventID)
	if d.Secret != "" {
		mac := hmac.New(sha256.New, []byte(d.Secret))
		mac.Write(body)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := d.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("jobs: webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Mux builds the asynq handler mux for the worker process.
func Mux(deliverer *Deliverer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeWebhookDeliver, deliverer)
	return mux
}
