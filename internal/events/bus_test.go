package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/events"
)

type stubStore struct {
	last events.Event
}

func (s *stubStore) InsertDomainEvent(_ context.Context, event events.Event) (events.Event, error) {
	event.ID = uuid.New()
	event.OccurredAt = time.Now()
	s.last = event
	return event, nil
}

type captureScheduler struct {
	events []events.Event
}

func (c *captureScheduler) Schedule(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	aggregate := uuid.New()
	payload := map[string]any{"documentId": aggregate.String()}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicDocumentCreated, "org-1", aggregate, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicDocumentCreated, store.last.Topic)
	require.Equal(t, "org-1", store.last.OrgID)
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, aggregate.String(), decoded["documentId"])
}

func TestEmitRejectsMissingTopicAndAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), "", "org-1", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicDocumentCreated, "org-1", uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), events.TopicDocumentCreated, "org-1", uuid.New(), []byte("{nope"))
	require.Error(t, err)
}
