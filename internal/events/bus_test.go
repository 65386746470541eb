package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/restrobazaar/storefront/internal/events"
)

type stubStore struct {
	events []events.Event
	err    error
}

func (s *stubStore) InsertEvent(_ context.Context, ev events.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, ev events.Event) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
		Now:       func() time.Time { return fixed },
	}

	ev, err := bus.Emit(context.Background(), events.TopicCartLineAdded, "sess-1", map[string]any{"vendorProductId": "vp1"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.Equal(t, fixed, ev.OccurredAt)
	require.Len(t, store.events, 1)
	require.Equal(t, "sess-1", store.events[0].SessionID)
	require.JSONEq(t, `{"vendorProductId":"vp1"}`, string(store.events[0].Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, ev.ID, notifier.events[0].ID)
}

func TestEmitWithoutStoreStillNotifies(t *testing.T) {
	notifier := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicCartCleared, "sess-1", nil)
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	require.JSONEq(t, `{}`, string(notifier.events[0].Payload))
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), " ", "sess-1", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicCartCleared, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicCartCleared, "sess-1", "{not json")
	require.Error(t, err)
}

func TestEmitStoreFailureSkipsNotifiers(t *testing.T) {
	notifier := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{err: errors.New("db down")}, Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicCartLineAdded, "sess-1", nil)
	require.ErrorContains(t, err, "persist event")
	require.Empty(t, notifier.events)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	first := &captureNotifier{err: errors.New("boom")}
	second := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{first, nil, second}}

	ev, err := bus.Emit(context.Background(), events.TopicCartLineRemoved, "sess-1", json.RawMessage(`{"op":"remove"}`))
	require.ErrorContains(t, err, "boom")
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.Len(t, second.events, 1)
}
