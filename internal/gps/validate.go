package gps

import "backend-pacetrack/internal/shared/geo"

// Rejection identifies why a raw sample was dropped before filtering.
// The zero value means the sample was accepted.
type Rejection string

const (
	RejectNone             Rejection = ""
	RejectOutOfBounds      Rejection = "out_of_bounds"
	RejectUnrealisticSpeed Rejection = "unrealistic_speed"
	RejectPositionJump     Rejection = "position_jump"
	RejectPoorAccuracy     Rejection = "poor_accuracy"

	// RejectOutOfOrder is applied by the session, not Validate; ordering
	// is a property of the trajectory, not of a single sample.
	RejectOutOfOrder Rejection = "out_of_order"
)

const (
	// maxReportedSpeedMps is just above elite sprint pace; no runner sustains it.
	maxReportedSpeedMps = 12.0
	// maxImpliedSpeedMps sits deliberately above the reported-speed cap so brief
	// GPS noise survives while multi-hundred-meter teleports do not.
	maxImpliedSpeedMps = 15.0
	maxAccuracyM       = 50.0
	// jumpWindowMs is the minimum elapsed time before the implied-speed check
	// is meaningful; two readings closer together divide by near-zero.
	jumpWindowMs = 100
)

// Validate checks a raw sample against physical plausibility limits, in order,
// stopping at the first failure. last is the previously accepted sample for
// this run, or nil at the start of a run.
func Validate(sample RawSample, last *RawSample) Rejection {
	if sample.Lat < -90 || sample.Lat > 90 || sample.Lng < -180 || sample.Lng > 180 {
		return RejectOutOfBounds
	}
	if sample.SpeedMps != nil && *sample.SpeedMps > maxReportedSpeedMps {
		return RejectUnrealisticSpeed
	}
	if last != nil {
		elapsedMs := sample.TimestampMs - last.TimestampMs
		if elapsedMs > jumpWindowMs {
			dist := geo.DistanceMeters(last.Lat, last.Lng, sample.Lat, sample.Lng)
			if dist/(float64(elapsedMs)/1000) > maxImpliedSpeedMps {
				return RejectPositionJump
			}
		}
	}
	if sample.AccuracyM > maxAccuracyM {
		return RejectPoorAccuracy
	}
	return RejectNone
}

// ImpliedSpeedMps derives speed from the displacement since the previously
// accepted sample. Returns 0 when no previous sample exists or time did not
// advance.
func ImpliedSpeedMps(sample RawSample, last *RawSample) float64 {
	if last == nil {
		return 0
	}
	elapsedMs := sample.TimestampMs - last.TimestampMs
	if elapsedMs <= 0 {
		return 0
	}
	dist := geo.DistanceMeters(last.Lat, last.Lng, sample.Lat, sample.Lng)
	return dist / (float64(elapsedMs) / 1000)
}
