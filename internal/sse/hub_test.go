package sse

import (
	"testing"

	"github.com/deckforge/deckforge-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewSSEHub(log)
}

func TestBroadcastReachesSubscribedClient(t *testing.T) {
	hub := newTestHub(t)

	client := hub.NewSSEClient("user-1")
	hub.AddChannel(client, UserChannel("user-1"))

	hub.Broadcast(SSEMessage{
		Channel: UserChannel("user-1"),
		Event:   SSEEventJobCompleted,
		Data:    map[string]any{"job_id": "abc"},
	})

	select {
	case msg := <-client.Outbound:
		if msg.Event != SSEEventJobCompleted {
			t.Fatalf("event = %q, want %q", msg.Event, SSEEventJobCompleted)
		}
	default:
		t.Fatalf("no message delivered")
	}
}

func TestBroadcastSkipsOtherChannels(t *testing.T) {
	hub := newTestHub(t)

	client := hub.NewSSEClient("user-1")
	hub.AddChannel(client, UserChannel("user-1"))

	hub.Broadcast(SSEMessage{Channel: UserChannel("user-2"), Event: SSEEventJobFailed})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub(t)

	client := hub.NewSSEClient("user-1")
	hub.AddChannel(client, UserChannel("user-1"))

	// Fill the buffer past capacity; extra messages drop instead of blocking.
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: UserChannel("user-1"), Event: SSEEventJobCompleted})
	}

	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("buffered = %d, want %d", got, cap(client.Outbound))
	}
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	hub := newTestHub(t)

	client := hub.NewSSEClient("user-1")
	hub.AddChannel(client, UserChannel("user-1"))
	hub.RemoveClient(client)

	hub.Broadcast(SSEMessage{Channel: UserChannel("user-1"), Event: SSEEventJobCancelled})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("message after removal: %+v", msg)
	default:
	}
}
