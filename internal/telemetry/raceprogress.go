// raceprogress.go — Stage 4: race progress and pit freeze.
package telemetry

import "github.com/f1telemetry/replay-engine/internal/types"

// DriverTimeline is the fully-resampled, race-progress-annotated channel
// set for one driver, ready for stage 5 frame assembly.
type DriverTimeline struct {
	Entrant types.DriverEntrant

	X, Y         []float64
	Lap          []int
	Tyre         []string
	Speed        []float64
	Gear         []int
	DRS          []int
	Throttle     []float64
	Brake        []float64
	RPM          []float64
	Dist         []float64 // accumulated race distance, meters
	RelDist      []float64 // fraction of current lap, [0,1]
	RaceProgress []float64
	InPit        []bool

	LapAnchors map[int]int // lap number -> authoritative race position at that lap's crossing
}

// ComputeRaceProgress implements stage 4: rel_dist is derived from
// LapDistance/circuitLength clamped to [0,1]; race_progress =
// (lap-1)*L + rel_dist*L, frozen while a driver is in the pit lane.
//
// Pit detection: an explicit upstream InPit flag always overrides the
// geometry-derived strategy (DetectPitLane) when the driver's series
// carried one; both strategies are implemented and the explicit flag
// wins when present.
func ComputeRaceProgress(r Resampled, circuitLength float64, geo types.TrackGeometry) DriverTimeline {
	n := len(r.X)
	dt := DriverTimeline{
		Entrant:      r.Entrant,
		X:            r.X,
		Y:            r.Y,
		Lap:          r.Lap,
		Tyre:         r.Tyre,
		Speed:        r.Speed,
		Gear:         r.Gear,
		DRS:          r.DRS,
		Throttle:     r.Throttle,
		Brake:        r.Brake,
		RPM:          r.RPM,
		Dist:         make([]float64, n),
		RelDist:      make([]float64, n),
		RaceProgress: make([]float64, n),
		InPit:        make([]bool, n),
		LapAnchors:   r.LapAnchors,
	}

	frozen := false
	var frozenValue float64

	for i := 0; i < n; i++ {
		rel := 0.0
		if circuitLength > 0 {
			rel = r.LapDistance[i] / circuitLength
		}
		if rel < 0 {
			rel = 0
		}
		if rel > 1 {
			rel = 1
		}
		dt.RelDist[i] = rel

		lap := r.Lap[i]
		if lap < 1 {
			lap = 1
		}
		raw := float64(lap-1)*circuitLength + rel*circuitLength

		inPit := inPitAt(r, geo, i)
		dt.InPit[i] = inPit

		if inPit {
			if !frozen {
				frozenValue = raw
				frozen = true
			}
			dt.RaceProgress[i] = frozenValue
			dt.Dist[i] = frozenValue
		} else {
			frozen = false
			dt.RaceProgress[i] = raw
			dt.Dist[i] = raw
		}
	}

	return dt
}

// inPitAt resolves pit status for sample i: explicit flag takes
// precedence; otherwise geometry-derived detection over (x, y).
func inPitAt(r Resampled, geo types.TrackGeometry, i int) bool {
	if r.HasInPit && i < len(r.InPit) {
		return r.InPit[i]
	}
	return DetectPitLane(geo, r.X[i], r.Y[i])
}
