package history

import (
	"time"

	"backend-pacetrack/internal/run"
)

// Record is one finished run as stored in Postgres. The route column is
// a geography LineString and only travels as WKT text at the edges; List
// leaves it out entirely to keep listings cheap.
type Record struct {
	ID              string            `json:"id"`
	DeviceID        string            `json:"device_id"`
	Title           string            `json:"title"`
	Notes           string            `json:"notes,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at"`
	DistanceM       float64           `json:"distance_m"`
	DurationSec     float64           `json:"duration_sec"`
	PausedSec       float64           `json:"paused_sec"`
	AveragePace     string            `json:"average_pace"`
	MaxSpeedMps     float64           `json:"max_speed_mps"`
	ElevationGainM  float64           `json:"elevation_gain_m"`
	ElevationLossM  float64           `json:"elevation_loss_m"`
	Splits          []run.Split       `json:"splits,omitempty"`
	SampleCount     int               `json:"sample_count"`
	RejectedCount   int               `json:"rejected_count"`
	FinalActivity   run.ActivityState `json:"final_activity"`
	RouteWKT        string            `json:"route,omitempty"`
	Matched         bool              `json:"matched"`
	MatchConfidence float64           `json:"match_confidence"`
	CreatedAt       time.Time         `json:"created_at"`
}
