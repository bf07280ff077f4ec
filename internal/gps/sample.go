package gps

// RawSample is one positioning reading as delivered by a device.
// Readings the device could not produce are nil rather than zero so that a
// missing altitude or speed is distinguishable from sea level or standing
// still.
type RawSample struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	AccuracyM   float64  `json:"accuracy_m"`
	AltitudeM   *float64 `json:"altitude_m,omitempty"`
	Heading     *float64 `json:"heading,omitempty"`
	SpeedMps    *float64 `json:"speed_mps,omitempty"`
	TimestampMs int64    `json:"timestamp_ms"`
}
