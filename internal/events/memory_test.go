package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher_PublishSubscribe(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Subscribe(ctx, EventExecutionCompleted)
	require.NoError(t, err)

	err = p.Publish(context.Background(), NewEvent(EventExecutionStarted, "default", nil))
	require.NoError(t, err)

	err = p.Publish(context.Background(), NewEvent(EventExecutionCompleted, "default", ExecutionEventData("task_1", "task", "f", nil)))
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, EventExecutionCompleted, got.Type)
		assert.Equal(t, "task_1", got.Data["execution_id"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryPublisher_UnfilteredSubscriberReceivesAll(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch, err := p.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), NewEvent(EventWorkerJoined, "", nil)))

	select {
	case got := <-ch:
		assert.Equal(t, EventWorkerJoined, got.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryPublisher_CancelClosesChannel(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestMemoryPublisher_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	_, err := p.Subscribe(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = p.Publish(context.Background(), NewEvent(EventExecutionStarted, "default", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
