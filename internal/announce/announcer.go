package announce

import (
	"encoding/json"
	"log"

	"backend-pacetrack/internal/run"
	"backend-pacetrack/internal/stream"
)

// HubAnnouncer serializes run events onto the stream hub. Clients
// decide how to render them; nothing here formats text or audio.
type HubAnnouncer struct {
	hub *stream.Hub
}

func NewHubAnnouncer(hub *stream.Hub) *HubAnnouncer {
	return &HubAnnouncer{hub: hub}
}

func (a *HubAnnouncer) Announce(runID string, event run.Event) {
	if a.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("announce marshal error: %v", err)
		return
	}
	a.hub.Broadcast(runID, payload)
}
