package match

import (
	"context"
	"errors"
	"log"
	"time"

	"backend-pacetrack/internal/shared/geo"
)

const (
	directLimit   = 100
	windowSize    = 90
	windowOverlap = 10

	meterCategory = "map_matching"
)

// Matcher issues one bounded matching request.
type Matcher interface {
	Match(ctx context.Context, coords []geo.Point) (Result, error)
}

// Meter records successful remote calls for cost accounting. Purely
// advisory; a metering failure never blocks matching.
type Meter interface {
	Track(ctx context.Context, category string, calls int) error
}

// Orchestrator reconciles trajectories of arbitrary length against the
// routing service. Long trajectories are cut into windows that stay
// under the service's input ceiling, dispatched strictly one at a time
// with a fixed delay between calls.
type Orchestrator struct {
	client Matcher
	meter  Meter
	delay  time.Duration
}

func NewOrchestrator(client Matcher, meter Meter, delay time.Duration) *Orchestrator {
	return &Orchestrator{client: client, meter: meter, delay: delay}
}

func (o *Orchestrator) track(ctx context.Context, calls int) {
	if o.meter == nil {
		return
	}
	if err := o.meter.Track(ctx, meterCategory, calls); err != nil {
		log.Printf("usage tracking failed: %v", err)
	}
}

// MatchTrajectory snaps a full trajectory onto the road network. Short
// inputs go out as one direct request; anything longer is windowed with
// a small leading overlap to keep the path continuous across seams. A
// failed window degrades to its own original coordinates instead of
// failing the pass. Cancellation is honored between windows only; a
// request already in flight always runs to completion.
func (o *Orchestrator) MatchTrajectory(ctx context.Context, coords []geo.Point) (Result, error) {
	if len(coords) < 2 {
		return Result{}, ErrTooFewCoords
	}

	// The per-call context deliberately drops cancellation so an
	// in-flight request is never torn down mid-call.
	callCtx := context.WithoutCancel(ctx)

	if len(coords) <= directLimit {
		result, err := o.client.Match(callCtx, coords)
		if err != nil {
			log.Printf("match failed, keeping original trajectory: %v", err)
			return Result{Coords: coords, Confidence: 0}, nil
		}
		o.track(ctx, 1)
		return result, nil
	}

	totalWindows := (len(coords) + windowSize - 1) / windowSize

	var merged []geo.Point
	var distance, duration float64
	failed := 0
	for k := 0; k < totalWindows; k++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := k * windowSize
		from := start
		if from >= windowOverlap {
			from -= windowOverlap
		}
		end := start + windowSize
		if end > len(coords) {
			end = len(coords)
		}
		window := coords[from:end]
		overlap := start - from

		result, err := o.client.Match(callCtx, window)
		if err == nil && len(result.Coords) == 0 {
			err = errors.New("empty match")
		}
		if err != nil {
			log.Printf("window %d/%d failed, using original coordinates: %v", k+1, totalWindows, err)
			failed++
			result = Result{Coords: window}
		} else {
			o.track(ctx, 1)
			distance += result.DistanceM
			duration += result.DurationSec
		}

		drop := overlap
		if drop > len(result.Coords) {
			drop = len(result.Coords)
		}
		merged = append(merged, result.Coords[drop:]...)

		if o.delay > 0 && k < totalWindows-1 {
			time.Sleep(o.delay)
		}
	}

	return Result{
		Coords:      merged,
		DistanceM:   distance,
		DurationSec: duration,
		Confidence:  1 - float64(failed)/float64(totalWindows),
	}, nil
}
