package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var seen []Event
	d.Subscribe(EventTokenRefreshed, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})
	d.Subscribe(EventUserLoggedIn, func(_ context.Context, e Event) error {
		t.Fatalf("unexpected event delivered: %s", e.Type)
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "evt-1", Type: EventTokenRefreshed, Username: "alice"})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "alice", seen[0].Username)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := NewInMemoryDispatcher()

	err := d.Publish(context.Background(), Event{Type: EventUserRegistered})
	assert.NoError(t, err)
}

func TestFailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventTokenPersistFailed, func(context.Context, Event) error {
		return errors.New("handler failure")
	})
	d.Subscribe(EventTokenPersistFailed, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTokenPersistFailed})
	require.NoError(t, err)
	assert.True(t, called)
}
