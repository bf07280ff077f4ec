package run

import "testing"

func TestElevationTally(t *testing.T) {
	var tally ElevationTally
	for _, alt := range []float64{100, 110, 105, 120} {
		v := alt
		tally.Observe(&v)
	}

	if tally.GainM != 25 {
		t.Fatalf("gain = %v, want 25", tally.GainM)
	}
	if tally.LossM != 5 {
		t.Fatalf("loss = %v, want 5", tally.LossM)
	}
	if min := tally.MinAltitudeM(); min == nil || *min != 100 {
		t.Fatalf("unexpected min: %v", min)
	}
	if max := tally.MaxAltitudeM(); max == nil || *max != 120 {
		t.Fatalf("unexpected max: %v", max)
	}
}

func TestElevationTallyMissingAltitude(t *testing.T) {
	var tally ElevationTally
	a, b := 100.0, 110.0
	tally.Observe(&a)
	tally.Observe(nil)
	tally.Observe(&b)

	// The nil reading is flat; the climb still counts in full.
	if tally.GainM != 10 || tally.LossM != 0 {
		t.Fatalf("gain/loss = %v/%v", tally.GainM, tally.LossM)
	}
}

func TestElevationTallyEmpty(t *testing.T) {
	var tally ElevationTally
	tally.Observe(nil)

	if tally.GainM != 0 || tally.LossM != 0 {
		t.Fatalf("expected zero tally")
	}
	if tally.MinAltitudeM() != nil || tally.MaxAltitudeM() != nil {
		t.Fatalf("expected nil extremes without readings")
	}
}

func TestElevationTallyFirstReadingSeeds(t *testing.T) {
	var tally ElevationTally
	v := 250.0
	tally.Observe(&v)

	if tally.GainM != 0 || tally.LossM != 0 {
		t.Fatalf("first reading must not contribute gain or loss")
	}
	if min := tally.MinAltitudeM(); min == nil || *min != 250 {
		t.Fatalf("unexpected min: %v", min)
	}
}
