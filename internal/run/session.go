package run

import (
	"errors"
	"log"
	"sync"

	"backend-pacetrack/internal/gps"
	"backend-pacetrack/internal/shared/geo"
)

var ErrRunStopped = errors.New("run already stopped")

const milestoneStepM = 1000.0

// IngestResult reports what the pipeline did with one raw sample.
type IngestResult struct {
	Accepted  bool          `json:"accepted"`
	Rejection gps.Rejection `json:"rejection,omitempty"`
	Point     *TrackPoint   `json:"point,omitempty"`
	Paused    bool          `json:"paused"`
	Activity  ActivityState `json:"activity"`
	DistanceM float64       `json:"distance_m"`
}

// Session owns the live pipeline for one active run. Every sample is
// fully processed under the session mutex before the next one is looked
// at, so trajectory mutations are strictly ordered.
type Session struct {
	mu sync.Mutex

	runID    string
	deviceID string

	startedAtMs int64
	endedAtMs   int64
	stopped     bool

	paused     bool
	autoPause  bool // classifier may pause and resume the run
	autoPaused bool // the current pause came from the classifier
	pausedAtMs int64
	pausedMs   int64

	filter     *gps.Filter
	classifier *Classifier
	elevation  ElevationTally

	lastRaw   *gps.RawSample
	lastPoint *TrackPoint

	trajectory     []TrackPoint
	distanceM      float64
	maxSpeedMps    float64
	nextMilestoneM float64

	sampleCount   int
	rejectedCount int
	rejections    map[gps.Rejection]int

	announcer Announcer
}

func NewSession(runID, deviceID string, startedAtMs int64, autoPause bool, announcer Announcer) *Session {
	s := &Session{
		runID:          runID,
		deviceID:       deviceID,
		startedAtMs:    startedAtMs,
		autoPause:      autoPause,
		filter:         gps.NewFilter(),
		classifier:     NewClassifier(),
		nextMilestoneM: milestoneStepM,
		rejections:     make(map[gps.Rejection]int),
		announcer:      announcer,
	}
	s.announce(Event{Type: EventStarted, TimestampMs: startedAtMs})
	return s
}

func (s *Session) announce(event Event) {
	if s.announcer == nil {
		return
	}
	event.RunID = s.runID
	s.announcer.Announce(s.runID, event)
}

func (s *Session) rejectLocked(rejection gps.Rejection) {
	s.rejectedCount++
	s.rejections[rejection]++
	log.Printf("run %s: sample rejected (%s)", s.runID, rejection)
}

// Ingest runs one raw sample through the full pipeline: validation,
// filtering, activity classification, and, when the run is not paused,
// trajectory/distance/elevation accounting and milestone events.
func (s *Session) Ingest(sample gps.RawSample) (IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return IngestResult{}, ErrRunStopped
	}

	s.sampleCount++
	result := IngestResult{Paused: s.paused, Activity: s.classifier.State(), DistanceM: s.distanceM}

	// Trajectory timestamps never decrease; a sample older than the
	// last accepted one is dropped before it can touch the filter.
	if s.lastRaw != nil && sample.TimestampMs < s.lastRaw.TimestampMs {
		s.rejectLocked(gps.RejectOutOfOrder)
		result.Rejection = gps.RejectOutOfOrder
		return result, nil
	}

	if rejection := gps.Validate(sample, s.lastRaw); rejection != gps.RejectNone {
		s.rejectLocked(rejection)
		result.Rejection = rejection
		return result, nil
	}

	speed := 0.0
	switch {
	case sample.SpeedMps != nil:
		speed = *sample.SpeedMps
	case s.lastRaw != nil:
		speed = gps.ImpliedSpeedMps(sample, s.lastRaw)
	}
	s.lastRaw = &sample

	lat, lng := s.filter.Process(sample.Lat, sample.Lng, sample.AccuracyM, sample.TimestampMs)

	if _, changed := s.classifier.Update(speed, sample.TimestampMs); changed {
		state := s.classifier.State()
		s.announce(Event{Type: EventActivity, TimestampMs: sample.TimestampMs, Activity: state})
		if state == ActivityStationary {
			if s.autoPause {
				s.pauseLocked(sample.TimestampMs, true)
			}
		} else if s.paused && s.autoPaused {
			s.resumeLocked(sample.TimestampMs, true)
		}
	}

	result.Accepted = true
	result.Paused = s.paused
	result.Activity = s.classifier.State()

	if s.paused {
		// Keep the filter and classifier warm, record nothing.
		return result, nil
	}

	if speed > s.maxSpeedMps {
		s.maxSpeedMps = speed
	}

	point := TrackPoint{Lat: lat, Lng: lng, AltitudeM: sample.AltitudeM, TimestampMs: sample.TimestampMs}
	if s.lastPoint != nil {
		s.distanceM += geo.Between(s.lastPoint.Coord(), point.Coord())
	}
	s.trajectory = append(s.trajectory, point)
	s.lastPoint = &point
	s.elevation.Observe(sample.AltitudeM)

	for s.distanceM >= s.nextMilestoneM {
		km := int(s.nextMilestoneM / milestoneStepM)
		activeSec := float64(sample.TimestampMs-s.startedAtMs-s.pausedMs) / 1000
		s.announce(Event{
			Type:        EventKmCrossed,
			TimestampMs: sample.TimestampMs,
			Km:          km,
			Pace:        FormatPace(PaceSecPerKm(s.distanceM, activeSec)),
			DistanceM:   s.distanceM,
			DurationSec: activeSec,
		})
		s.nextMilestoneM += milestoneStepM
	}

	result.Point = &point
	result.DistanceM = s.distanceM
	return result, nil
}

// SourceError surfaces a positioning failure from the device to the
// announcer. The run keeps going; a later fix resumes the pipeline.
func (s *Session) SourceError(code int, nowMs int64) (gps.SourceError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return "", ErrRunStopped
	}
	category, ok := gps.SourceErrorFromCode(code)
	if !ok {
		return "", errors.New("unknown source error code")
	}
	s.announce(Event{Type: EventSourceError, TimestampMs: nowMs, Reason: string(category)})
	return category, nil
}

func (s *Session) Pause(nowMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrRunStopped
	}
	s.pauseLocked(nowMs, false)
	return nil
}

func (s *Session) pauseLocked(nowMs int64, auto bool) {
	if s.paused {
		return
	}
	s.paused = true
	s.autoPaused = auto
	s.pausedAtMs = nowMs
	s.announce(Event{Type: EventPaused, TimestampMs: nowMs, Auto: auto, DistanceM: s.distanceM})
}

func (s *Session) Resume(nowMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrRunStopped
	}
	s.resumeLocked(nowMs, false)
	return nil
}

func (s *Session) resumeLocked(nowMs int64, auto bool) {
	if !s.paused {
		return
	}
	s.pausedMs += nowMs - s.pausedAtMs
	s.paused = false
	s.autoPaused = false
	// Re-anchor so the gap covered while paused adds no distance.
	s.lastPoint = nil
	s.announce(Event{Type: EventResumed, TimestampMs: nowMs, Auto: auto, DistanceM: s.distanceM})
}

// Status reports the live view of the run at the given clock.
func (s *Session) Status(nowMs int64) LiveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	pausedMs := s.pausedMs
	if s.paused {
		pausedMs += nowMs - s.pausedAtMs
	}
	activeSec := float64(nowMs-s.startedAtMs-pausedMs) / 1000

	status := LiveStatus{
		RunID:         s.runID,
		DeviceID:      s.deviceID,
		StartedAtMs:   s.startedAtMs,
		Paused:        s.paused,
		DistanceM:     s.distanceM,
		DurationSec:   float64(nowMs-s.startedAtMs) / 1000,
		PausedSec:     float64(pausedMs) / 1000,
		CurrentPace:   FormatPace(PaceSecPerKm(s.distanceM, activeSec)),
		Activity:      s.classifier.State(),
		SampleCount:   s.sampleCount,
		RejectedCount: s.rejectedCount,
	}
	if len(s.rejections) > 0 {
		counts := make(map[gps.Rejection]int, len(s.rejections))
		for reason, n := range s.rejections {
			counts[reason] = n
		}
		status.Rejections = counts
	}
	if s.lastPoint != nil {
		point := *s.lastPoint
		status.LastPoint = &point
	}
	return status
}

// Trajectory returns a copy of the filtered coordinates recorded so far.
func (s *Session) Trajectory() []TrackPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]TrackPoint, len(s.trajectory))
	copy(points, s.trajectory)
	return points
}

// Stop ends the run and assembles its summary. Sample ingestion fails
// from this point on. Splits are computed once, here, from the finished
// trajectory and the wall-clock start/end of the run.
func (s *Session) Stop(nowMs int64) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Summary{}, ErrRunStopped
	}
	s.stopped = true
	if s.paused {
		s.pausedMs += nowMs - s.pausedAtMs
		s.paused = false
	}
	s.endedAtMs = nowMs

	coords := make([]geo.Point, len(s.trajectory))
	for i, p := range s.trajectory {
		coords[i] = p.Coord()
	}

	durationSec := float64(s.endedAtMs-s.startedAtMs) / 1000
	pausedSec := float64(s.pausedMs) / 1000
	splits := ComputeSplits(coords, s.startedAtMs, s.endedAtMs)

	summary := Summary{
		RunID:          s.runID,
		DeviceID:       s.deviceID,
		StartedAtMs:    s.startedAtMs,
		EndedAtMs:      s.endedAtMs,
		DistanceM:      s.distanceM,
		DurationSec:    durationSec,
		PausedSec:      pausedSec,
		AveragePace:    FormatPace(PaceSecPerKm(s.distanceM, durationSec-pausedSec)),
		MaxSpeedMps:    s.maxSpeedMps,
		ElevationGainM: s.elevation.GainM,
		ElevationLossM: s.elevation.LossM,
		MinAltitudeM:   s.elevation.MinAltitudeM(),
		MaxAltitudeM:   s.elevation.MaxAltitudeM(),
		Splits:         splits,
		Route:          coords,
		SampleCount:    s.sampleCount,
		RejectedCount:  s.rejectedCount,
		FinalActivity:  s.classifier.State(),
	}
	if len(splits) > 0 {
		stats := SplitStatistics(splits)
		summary.SplitStats = &stats
	}

	s.announce(Event{
		Type:        EventStopped,
		TimestampMs: nowMs,
		DistanceM:   s.distanceM,
		DurationSec: durationSec,
		Pace:        summary.AveragePace,
	})
	return summary, nil
}
