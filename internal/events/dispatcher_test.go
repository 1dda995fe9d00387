package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var delivered []Event
	d.Subscribe(EventIncidentCreated, func(_ context.Context, event Event) error {
		delivered = append(delivered, event)
		return nil
	})

	event := Event{Type: EventIncidentCreated, IncidentID: "inc_aaaa0001"}
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, delivered, 1)
	assert.Equal(t, "inc_aaaa0001", delivered[0].IncidentID)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventIncidentResolved, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventIncidentCreated}))
	assert.False(t, called)
}

func TestDispatcherContinuesPastHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()

	var order []string
	d.Subscribe(EventIncidentRecurred, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return errors.New("handler failed")
	})
	d.Subscribe(EventIncidentRecurred, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventIncidentRecurred}))
	assert.Equal(t, []string{"first", "second"}, order)
}
