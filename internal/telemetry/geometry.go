// geometry.go — Stage 2 (circuit length) and pit-lane detection.
package telemetry

import (
	"math"

	"github.com/f1telemetry/replay-engine/internal/types"
)

// DefaultCircuitLength is the fallback used when the fastest lap's
// telemetry is unavailable.
const DefaultCircuitLength = 5000.0

// CircuitLength derives the circuit length from the total accumulated
// distance over the fastest lap's telemetry, falling back to
// DefaultCircuitLength when no fastest lap is supplied.
func CircuitLength(fastest *types.FastestLapSamples) float64 {
	if fastest == nil || len(fastest.Points) == 0 {
		return DefaultCircuitLength
	}
	min, max := fastest.Points[0].LapDistance, fastest.Points[0].LapDistance
	for _, p := range fastest.Points {
		if p.LapDistance < min {
			min = p.LapDistance
		}
		if p.LapDistance > max {
			max = p.LapDistance
		}
	}
	length := max - min
	if length <= 0 {
		return DefaultCircuitLength
	}
	return length
}

// defaultPitRadius is the default bounding radius (meters) around a pit
// entry/exit coordinate used by geometry-derived pit detection, when the
// track geometry does not specify one.
const defaultPitRadius = 60.0

// DetectPitLane reports whether (x, y) lies within the pit radius of the
// pit entry or the pit exit coordinate; a coordinate left at (0, 0) is
// treated as unset. This is the geometry-derived fallback strategy; an
// explicit upstream InPit flag, when present on a sample, always
// overrides this (see inPit in raceprogress.go).
func DetectPitLane(geo types.TrackGeometry, x, y float64) bool {
	radius := geo.PitRadius
	if radius <= 0 {
		radius = defaultPitRadius
	}
	if withinRadius(x, y, geo.PitEntry, radius) {
		return true
	}
	if withinRadius(x, y, geo.PitExit, radius) {
		return true
	}
	return false
}

func withinRadius(x, y float64, point [2]float64, radius float64) bool {
	if point[0] == 0 && point[1] == 0 {
		return false
	}
	dx, dy := x-point[0], y-point[1]
	return math.Hypot(dx, dy) <= radius
}
