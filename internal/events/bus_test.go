package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agora-market/agora/internal/events"
	"github.com/agora-market/agora/internal/market/types"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := events.NewBus(4, nil)
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Publish(types.NewEvent("a"), types.NewEvent("b"))

	require.Equal(t, "a", (<-first).Type)
	require.Equal(t, "b", (<-first).Type)
	require.Equal(t, "a", (<-second).Type)
	require.Equal(t, "b", (<-second).Type)
}

// A full subscriber buffer drops events instead of blocking the publisher.
func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := events.NewBus(1, nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(types.NewEvent("kept"))
	bus.Publish(types.NewEvent("dropped"))

	require.Equal(t, "kept", (<-ch).Type)
	select {
	case event := <-ch:
		t.Fatalf("unexpected delivery: %s", event.Type)
	default:
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := events.NewBus(4, nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancel must not panic.
	bus.Publish(types.NewEvent("late"))
}

func TestBus_CloseClosesAllSubscribers(t *testing.T) {
	bus := events.NewBus(4, nil)
	first, _ := bus.Subscribe()
	second, _ := bus.Subscribe()

	bus.Close()
	bus.Close() // idempotent

	_, open := <-first
	require.False(t, open)
	_, open = <-second
	require.False(t, open)

	// Subscribing on a closed bus yields a closed channel.
	ch, cancel := bus.Subscribe()
	defer cancel()
	_, open = <-ch
	require.False(t, open)
}
