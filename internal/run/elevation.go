package run

// ElevationTally accumulates climb and descent from whatever altitude
// the device reports. A sample without altitude contributes nothing.
type ElevationTally struct {
	GainM float64
	LossM float64

	seen bool
	last float64
	min  float64
	max  float64
}

func (t *ElevationTally) Observe(altitudeM *float64) {
	if altitudeM == nil {
		return
	}
	alt := *altitudeM
	if !t.seen {
		t.seen = true
		t.last, t.min, t.max = alt, alt, alt
		return
	}
	if delta := alt - t.last; delta > 0 {
		t.GainM += delta
	} else {
		t.LossM -= delta
	}
	t.last = alt
	if alt < t.min {
		t.min = alt
	}
	if alt > t.max {
		t.max = alt
	}
}

func (t *ElevationTally) MinAltitudeM() *float64 {
	if !t.seen {
		return nil
	}
	v := t.min
	return &v
}

func (t *ElevationTally) MaxAltitudeM() *float64 {
	if !t.seen {
		return nil
	}
	v := t.max
	return &v
}
