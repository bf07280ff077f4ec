package run

const (
	walkingThresholdMps = 0.5
	runningThresholdMps = 2.0
	debounceMs          = 3000
)

// Classifier turns instantaneous speed into a debounced activity state.
// A candidate state must hold continuously for debounceMs before it is
// confirmed, so speed noise flapping around a threshold never flips the
// state back and forth.
type Classifier struct {
	confirmed        ActivityState
	candidate        ActivityState
	candidateSinceMs int64
}

func NewClassifier() *Classifier {
	return &Classifier{confirmed: ActivityStationary, candidate: ActivityStationary}
}

func classify(speedMps float64) ActivityState {
	switch {
	case speedMps < walkingThresholdMps:
		return ActivityStationary
	case speedMps < runningThresholdMps:
		return ActivityWalking
	default:
		return ActivityRunning
	}
}

// Update feeds one speed reading at the given clock. It returns the
// confirmed state and whether this reading changed it.
func (c *Classifier) Update(speedMps float64, nowMs int64) (ActivityState, bool) {
	candidate := classify(speedMps)

	if candidate == c.confirmed {
		// Flicker back to the confirmed state resets any pending change.
		c.candidate = candidate
		c.candidateSinceMs = 0
		return c.confirmed, false
	}
	if candidate != c.candidate {
		c.candidate = candidate
		c.candidateSinceMs = nowMs
		return c.confirmed, false
	}
	if nowMs-c.candidateSinceMs >= debounceMs {
		c.confirmed = candidate
		c.candidateSinceMs = 0
		return c.confirmed, true
	}
	return c.confirmed, false
}

func (c *Classifier) State() ActivityState {
	return c.confirmed
}
