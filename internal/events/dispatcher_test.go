package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherInvokesSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls []string
	d.Subscribe(EventLoginSucceeded, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.Username)
		return nil
	})
	d.Subscribe(EventLoginSucceeded, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.Username)
		return nil
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, _ Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventLoginSucceeded, Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:alice", "second:alice"}, calls)
}

func TestDispatcherContinuesPastFailingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	handlerErr := errors.New("sink unavailable")

	var reached bool
	d.Subscribe(EventTokenRejected, func(_ context.Context, _ Event) error {
		return handlerErr
	})
	d.Subscribe(EventTokenRejected, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTokenRejected})
	assert.ErrorIs(t, err, handlerErr)
	assert.True(t, reached)
}

func TestDispatcherPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventLogout}))
}

func TestDispatcherIsolatesPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()

	var reached bool
	d.Subscribe(EventAccessDenied, func(_ context.Context, _ Event) error {
		panic("observer bug")
	})
	d.Subscribe(EventAccessDenied, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	var err error
	require.NotPanics(t, func() {
		err = d.Publish(context.Background(), Event{Type: EventAccessDenied})
	})
	assert.ErrorContains(t, err, "observer bug")
	assert.True(t, reached)
}
