package run

const (
	EventStarted     = "started"
	EventPaused      = "paused"
	EventResumed     = "resumed"
	EventStopped     = "stopped"
	EventKmCrossed   = "km_crossed"
	EventActivity    = "activity_changed"
	EventSourceError = "source_error"
)

// Event is one live notification published while a run is active. The
// announcer decides how to render it; the session only supplies values.
type Event struct {
	Type        string        `json:"type"`
	RunID       string        `json:"run_id"`
	TimestampMs int64         `json:"timestamp_ms"`
	Km          int           `json:"km,omitempty"`
	Pace        string        `json:"pace,omitempty"`
	DistanceM   float64       `json:"distance_m,omitempty"`
	DurationSec float64       `json:"duration_sec,omitempty"`
	Activity    ActivityState `json:"activity,omitempty"`
	Auto        bool          `json:"auto,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// Announcer publishes run events to whoever is listening, typically the
// websocket stream feeding voice cues and the live map.
type Announcer interface {
	Announce(runID string, event Event)
}
