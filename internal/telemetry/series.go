// series.go — DriverSeries: the concatenated, monotonic per-driver
// channel arrays that stage 1 produces and stage 3 consumes. Once frames
// are assembled (stage 5) these are discarded — frames are timeline-
// driven, not driver-driven.
package telemetry

import "github.com/f1telemetry/replay-engine/internal/types"

// DriverSeries holds one entrant's chronologically concatenated
// telemetry, column-oriented rather than a slice of per-sample structs,
// so each stage can operate on a whole channel at once.
type DriverSeries struct {
	Entrant types.DriverEntrant

	Time        []float64
	X, Y        []float64
	LapDistance []float64
	LapNumber   []int
	Tyre        []string
	Speed       []float64
	Gear        []int
	DRS         []int
	Throttle    []float64
	Brake       []float64
	RPM         []float64
	InPit       []bool // nil-equivalent: len 0 means "no explicit flag supplied anywhere"
	HasInPit    bool

	LapAnchors map[int]int // lap number -> authoritative race position at that lap's crossing
}

func (s *DriverSeries) Len() int { return len(s.Time) }
