package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventAnalysisCompleted, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventDatasetReplaced}))
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventAnalysisCompleted}))
	assert.Equal(t, []EventType{EventAnalysisCompleted}, got)
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("webhook down")
	calls := 0
	d.Subscribe(EventIngestionFailed, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventIngestionFailed, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventIngestionFailed})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
