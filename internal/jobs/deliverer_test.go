package jobs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/events"
)

func sampleEvent() events.Event {
	return events.Event{
		ID:          uuid.New(),
		OrgID:       "org-1",
		Topic:       events.TopicDocumentCreated,
		AggregateID: uuid.New(),
		Payload:     []byte(`{"documentId":"abc","type":"invoice"}`),
		OccurredAt:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookTaskRoundTrip(t *testing.T) {
	event := sampleEvent()
	task, err := NewWebhookDeliveryTask("https://hooks.example.com/billing", event)
	require.NoError(t, err)
	require.Equal(t, TypeWebhookDeliver, task.Type())

	payload, err := decodeWebhookPayload(task)
	require.NoError(t, err)
	require.Equal(t, "https://hooks.example.com/billing", payload.Endpoint)
	require.Equal(t, event.ID, payload.Event.ID)
	require.Equal(t, event.Topic, payload.Event.Topic)
	require.JSONEq(t, string(event.Payload), string(payload.Event.Payload))

	_, err = NewWebhookDeliveryTask("", event)
	require.Error(t, err)
}

func TestDelivererSignsAndPosts(t *testing.T) {
	event := sampleEvent()
	var gotSig, gotEventID string
	var gotBody []byte
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotEventID = r.Header.Get("X-Event-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer remote.Close()

	deliverer := NewDeliverer("hooksecret", zerolog.Nop())
	task, err := NewWebhookDeliveryTask(remote.URL, event)
	require.NoError(t, err)

	require.NoError(t, deliverer.ProcessTask(context.Background(), task))
	require.Equal(t, event.ID.String(), gotEventID)

	mac := hmac.New(sha256.New, []byte("hooksecret"))
	mac.Write(gotBody)
	require.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestDelivererErrorsOnRejection(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer remote.Close()

	deliverer := NewDeliverer("", zerolog.Nop())
	deliverer.HTTP.MaxAttempts = 1
	task, err := NewWebhookDeliveryTask(remote.URL, sampleEvent())
	require.NoError(t, err)

	require.Error(t, deliverer.ProcessTask(context.Background(), task))
}

func TestDelivererSkipsMalformedPayloads(t *testing.T) {
	deliverer := NewDeliverer("", zerolog.Nop())
	err := deliverer.ProcessTask(context.Background(), asynq.NewTask(TypeWebhookDeliver, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
