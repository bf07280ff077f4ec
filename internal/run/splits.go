package run

import (
	"fmt"

	"backend-pacetrack/internal/shared/geo"
)

const (
	splitLengthM     = 1000.0
	partialSplitMinM = 100.0

	// Paces outside this band are GPS artifacts, not running.
	minPlausiblePaceMinKm = 2.0
	maxPlausiblePaceMinKm = 20.0
)

// PaceUnknown marks a pace that fell outside the plausible range.
const PaceUnknown = "--:--"

// PaceSecPerKm converts a distance and duration into seconds per
// kilometre. Zero distance yields zero.
func PaceSecPerKm(distanceM, durationSec float64) float64 {
	if distanceM <= 0 {
		return 0
	}
	return durationSec / (distanceM / 1000)
}

// FormatPace renders seconds-per-kilometre as M:SS.
func FormatPace(secPerKm float64) string {
	if !paceValid(secPerKm) {
		return PaceUnknown
	}
	total := int(secPerKm + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func paceValid(secPerKm float64) bool {
	minPerKm := secPerKm / 60
	return minPerKm >= minPlausiblePaceMinKm && minPerKm <= maxPlausiblePaceMinKm
}

// ComputeSplits breaks a finished trajectory into per-kilometre splits.
// Per-point timestamps are not retained in the trajectory, so elapsed
// time is spread evenly across the recorded segments. That skews split
// timing when sample arrival was bursty, which is accepted.
func ComputeSplits(coords []geo.Point, startMs, endMs int64) []Split {
	if len(coords) < 2 {
		return nil
	}

	totalMs := float64(endMs - startMs)
	if totalMs < 0 {
		totalMs = 0
	}
	stepMs := totalMs / float64(len(coords)-1)

	var splits []Split
	var total, closedDist, closedElapsedMs float64
	for i := 1; i < len(coords); i++ {
		total += geo.Between(coords[i-1], coords[i])
		if total >= float64(len(splits)+1)*splitLengthM {
			elapsedMs := float64(i) * stepMs
			distance := total - closedDist
			duration := (elapsedMs - closedElapsedMs) / 1000
			splits = append(splits, Split{
				Km:          len(splits) + 1,
				DistanceM:   distance,
				DurationSec: duration,
				Pace:        FormatPace(PaceSecPerKm(distance, duration)),
			})
			closedDist = total
			closedElapsedMs = elapsedMs
		}
	}

	if remaining := total - closedDist; remaining > partialSplitMinM {
		duration := (totalMs - closedElapsedMs) / 1000
		splits = append(splits, Split{
			Km:          len(splits) + 1,
			DistanceM:   remaining,
			DurationSec: duration,
			Pace:        FormatPace(PaceSecPerKm(remaining, duration)),
		})
	}
	return splits
}

// SplitStatistics summarizes splits into best, worst, and average pace.
// Splits with an implausible pace are left out; when none remain every
// pace reports unknown.
func SplitStatistics(splits []Split) SplitStats {
	stats := SplitStats{BestPace: PaceUnknown, WorstPace: PaceUnknown, AveragePace: PaceUnknown}

	var sum float64
	var valid int
	var best, worst float64
	for _, split := range splits {
		pace := PaceSecPerKm(split.DistanceM, split.DurationSec)
		if !paceValid(pace) {
			continue
		}
		if valid == 0 || pace < best {
			best = pace
			stats.BestKm = split.Km
		}
		if valid == 0 || pace > worst {
			worst = pace
			stats.WorstKm = split.Km
		}
		sum += pace
		valid++
	}
	if valid == 0 {
		return stats
	}

	stats.BestPace = FormatPace(best)
	stats.WorstPace = FormatPace(worst)
	stats.AveragePace = FormatPace(sum / float64(valid))
	return stats
}
