package websocket

import (
	"testing"

	"go.uber.org/zap"
)

func TestShouldBroadcastEvent(t *testing.T) {
	hub := NewHub(&HubConfig{
		BroadcastTagging: true,
		BroadcastIngest:  false,
		BroadcastSystem:  true,
	}, zap.NewNop())

	if !hub.shouldBroadcastEvent(EventTypeTagging) {
		t.Error("Tagging events should be broadcast when enabled")
	}
	if hub.shouldBroadcastEvent(EventTypeIngest) {
		t.Error("Ingest events should be suppressed when disabled")
	}
	if hub.shouldBroadcastEvent(EventType("unknown")) {
		t.Error("Unknown event types must never be broadcast")
	}

	nilConfig := NewHub(nil, zap.NewNop())
	if nilConfig.shouldBroadcastEvent(EventTypeTagging) {
		t.Error("Hub without config must not broadcast")
	}
}

func TestShouldSendToClient(t *testing.T) {
	hub := NewHub(&HubConfig{}, zap.NewNop())

	t.Run("NoSubscription", func(t *testing.T) {
		client := &Client{}
		if !hub.shouldSendToClient(client, Event{Type: EventTypeTagging}) {
			t.Error("Client without subscription should receive all events")
		}
	})

	t.Run("SubscribedType", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{
			Events: []EventType{EventTypeIngest},
		}}
		if !hub.shouldSendToClient(client, Event{Type: EventTypeIngest}) {
			t.Error("Subscribed event type should be delivered")
		}
		if hub.shouldSendToClient(client, Event{Type: EventTypeTagging}) {
			t.Error("Unsubscribed event type should be filtered")
		}
	})
}

func TestHubStats(t *testing.T) {
	hub := NewHub(&HubConfig{BroadcastConnections: true}, zap.NewNop())

	stats := hub.GetStats()
	if stats.ActiveConnections != 0 || stats.TotalConnections != 0 {
		t.Errorf("Fresh hub should have zero connections, got %+v", stats)
	}
}

func TestBroadcastEvictsSlowClient(t *testing.T) {
	hub := NewHub(&HubConfig{BroadcastTagging: true}, zap.NewNop())

	slow := &Client{ID: "slow", Send: make(chan Event)}
	healthy := &Client{ID: "healthy", Send: make(chan Event, 4)}
	hub.clients[slow] = true
	hub.clients[healthy] = true
	hub.stats.ActiveConnections = 2

	hub.broadcastEvent(Event{Type: EventTypeTagging})

	if _, ok := hub.clients[slow]; ok {
		t.Error("Client with a full send channel should be evicted")
	}
	if _, ok := hub.clients[healthy]; !ok {
		t.Error("Healthy client must survive the broadcast")
	}
	if hub.stats.ActiveConnections != 1 {
		t.Errorf("Active connections should drop to 1, got %d", hub.stats.ActiveConnections)
	}

	select {
	case evt := <-healthy.Send:
		if evt.Type != EventTypeTagging {
			t.Errorf("Unexpected event type %q", evt.Type)
		}
	default:
		t.Error("Healthy client should have received the event")
	}

	if _, ok := <-slow.Send; ok {
		t.Error("Evicted client's send channel should be closed")
	}
}
