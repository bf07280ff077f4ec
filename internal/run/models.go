package run

import (
	"backend-pacetrack/internal/gps"
	"backend-pacetrack/internal/shared/geo"
)

// ActivityState is the debounced movement class of the runner.
type ActivityState string

const (
	ActivityStationary ActivityState = "stationary"
	ActivityWalking    ActivityState = "walking"
	ActivityRunning    ActivityState = "running"
)

// TrackPoint is one filtered trajectory coordinate.
type TrackPoint struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	AltitudeM   *float64 `json:"altitude_m,omitempty"`
	TimestampMs int64    `json:"timestamp_ms"`
}

func (p TrackPoint) Coord() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}

// Split is the pace breakdown of one kilometre of the run.
type Split struct {
	Km          int     `json:"km"`
	DistanceM   float64 `json:"distance_m"`
	DurationSec float64 `json:"duration_sec"`
	Pace        string  `json:"pace"`
}

// SplitStats aggregates the per-kilometre splits of a finished run.
type SplitStats struct {
	BestKm      int    `json:"best_km"`
	BestPace    string `json:"best_pace"`
	WorstKm     int    `json:"worst_km"`
	WorstPace   string `json:"worst_pace"`
	AveragePace string `json:"average_pace"`
}

// Summary is the final accounting of a run handed to the history store.
type Summary struct {
	RunID           string        `json:"run_id"`
	DeviceID        string        `json:"device_id"`
	StartedAtMs     int64         `json:"started_at_ms"`
	EndedAtMs       int64         `json:"ended_at_ms"`
	DistanceM       float64       `json:"distance_m"`
	DurationSec     float64       `json:"duration_sec"`
	PausedSec       float64       `json:"paused_sec"`
	AveragePace     string        `json:"average_pace"`
	MaxSpeedMps     float64       `json:"max_speed_mps"`
	ElevationGainM  float64       `json:"elevation_gain_m"`
	ElevationLossM  float64       `json:"elevation_loss_m"`
	MinAltitudeM    *float64      `json:"min_altitude_m,omitempty"`
	MaxAltitudeM    *float64      `json:"max_altitude_m,omitempty"`
	Splits          []Split       `json:"splits"`
	SplitStats      *SplitStats   `json:"split_stats,omitempty"`
	Route           []geo.Point   `json:"route"`
	SampleCount     int           `json:"sample_count"`
	RejectedCount   int           `json:"rejected_count"`
	FinalActivity   ActivityState `json:"final_activity"`
	MapMatched      bool          `json:"map_matched"`
	MatchConfidence float64       `json:"match_confidence,omitempty"`
}

// LiveStatus is the in-flight view of an active run.
type LiveStatus struct {
	RunID         string                `json:"run_id"`
	DeviceID      string                `json:"device_id"`
	StartedAtMs   int64                 `json:"started_at_ms"`
	Paused        bool                  `json:"paused"`
	DistanceM     float64               `json:"distance_m"`
	DurationSec   float64               `json:"duration_sec"`
	PausedSec     float64               `json:"paused_sec"`
	CurrentPace   string                `json:"current_pace"`
	Activity      ActivityState         `json:"activity"`
	SampleCount   int                   `json:"sample_count"`
	RejectedCount int                   `json:"rejected_count"`
	Rejections    map[gps.Rejection]int `json:"rejections,omitempty"`
	LastPoint     *TrackPoint           `json:"last_point,omitempty"`
}
