package announce

import (
	"encoding/json"
	"testing"
	"time"

	"backend-pacetrack/internal/run"
	"backend-pacetrack/internal/stream"
)

func TestHubAnnouncerPublishesJSON(t *testing.T) {
	hub := stream.NewHub(nil)
	client := hub.Register("run-1")
	defer hub.Unregister(client)

	announcer := NewHubAnnouncer(hub)
	announcer.Announce("run-1", run.Event{
		Type:        run.EventKmCrossed,
		RunID:       "run-1",
		TimestampMs: 123,
		Km:          2,
		Pace:        "5:30",
	})

	select {
	case payload := <-client.Send:
		var event run.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != run.EventKmCrossed || event.Km != 2 || event.Pace != "5:30" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for event")
	}
}

func TestHubAnnouncerNilHub(t *testing.T) {
	announcer := NewHubAnnouncer(nil)
	announcer.Announce("run-1", run.Event{Type: run.EventStarted})
}
