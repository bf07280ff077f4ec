package gps

import "math"

const (
	// DefaultProcessVariance assumes handheld-device drift between readings.
	DefaultProcessVariance = 5.0
	// DefaultMinAccuracyM floors reported accuracy; phones report wildly
	// optimistic radii when a fix is fresh.
	DefaultMinAccuracyM = 5.0

	minStepSec = 0.1
	maxStepSec = 5.0
)

// Filter smooths accepted coordinates with one recursive estimator per axis.
// One instance serves one run; Reset re-arms it for the next.
type Filter struct {
	ProcessVariance float64
	MinAccuracyM    float64

	initialized bool
	lat         float64
	lng         float64
	varLat      float64
	varLng      float64
	lastMs      int64
}

// NewFilter returns a filter with handheld-GPS defaults.
func NewFilter() *Filter {
	return &Filter{
		ProcessVariance: DefaultProcessVariance,
		MinAccuracyM:    DefaultMinAccuracyM,
	}
}

// Process folds one accepted reading into the estimate and returns the
// filtered coordinates. The first reading seeds the estimate directly with
// variance accuracy². Later readings grow the variance by the elapsed time
// (clamped to [0.1s, 5s] to bound both stale-variance inflation and
// single-jump impact) times the process variance, then blend the reading in
// with a per-axis gain of variance/(variance+accuracy²).
func (f *Filter) Process(lat, lng, accuracyM float64, timestampMs int64) (float64, float64) {
	if accuracyM < f.MinAccuracyM {
		accuracyM = f.MinAccuracyM
	}

	if !f.initialized {
		f.initialized = true
		f.lat = lat
		f.lng = lng
		f.varLat = accuracyM * accuracyM
		f.varLng = f.varLat
		f.lastMs = timestampMs
		return f.lat, f.lng
	}

	step := float64(timestampMs-f.lastMs) / 1000
	if step < minStepSec {
		step = minStepSec
	}
	if step > maxStepSec {
		step = maxStepSec
	}
	f.lastMs = timestampMs

	f.varLat += step * f.ProcessVariance
	f.varLng += step * f.ProcessVariance

	acc2 := accuracyM * accuracyM
	gainLat := f.varLat / (f.varLat + acc2)
	gainLng := f.varLng / (f.varLng + acc2)

	f.lat += gainLat * (lat - f.lat)
	f.lng += gainLng * (lng - f.lng)
	f.varLat *= 1 - gainLat
	f.varLng *= 1 - gainLng

	return f.lat, f.lng
}

// Variance reports the larger of the two axis variances as an uncertainty
// proxy for the current estimate.
func (f *Filter) Variance() float64 {
	return math.Max(f.varLat, f.varLng)
}

// Initialized reports whether the filter has seen a reading since the last
// reset.
func (f *Filter) Initialized() bool {
	return f.initialized
}

// Reset clears the estimate so the next reading seeds a fresh run.
func (f *Filter) Reset() {
	*f = Filter{
		ProcessVariance: f.ProcessVariance,
		MinAccuracyM:    f.MinAccuracyM,
	}
}
