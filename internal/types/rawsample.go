// rawsample.go — Raw upstream telemetry contract types. Fetching these
// from an upstream provider is someone else's job; these are just the
// shapes the pipeline receives.
package types

// RawPoint is one upstream telemetry sample for a single driver, before
// resampling. SessionTime is seconds since an arbitrary upstream epoch,
// not yet translated onto the global timeline.
type RawPoint struct {
	SessionTime float64
	X, Y        float64
	LapDistance float64
	LapNumber   int
	Tyre        string
	Speed       float64
	Gear        int
	DRS         int
	Throttle    float64
	Brake       float64
	RPM         float64

	// InPit, when non-nil, is an explicit upstream pit-lane flag. When
	// nil, pit detection falls back to TrackGeometry (see
	// telemetry.DetectPitLane).
	InPit *bool

	// LapAnchorPosition, when non-nil, is the authoritative race position
	// recorded by the upstream provider at the moment this sample's
	// driver crossed the start/finish line. Only meaningful on the
	// sample closing out a lap.
	LapAnchorPosition *int
}

// RawLap is one lap's worth of raw samples for one driver, the unit the
// pipeline sorts by start time before concatenation.
type RawLap struct {
	LapNumber int
	Points    []RawPoint
}

// DriverEntrant is the static identity of one entrant, independent of
// telemetry content.
type DriverEntrant struct {
	Code        string
	Number      int
	Team        string
	Color       RGB
	GridPosition int // 0 = unknown/unavailable
}

// RawDriverInput is everything the per-driver extraction stage (stage 1)
// needs for one entrant: identity plus chronologically-unsorted laps.
type RawDriverInput struct {
	Entrant DriverEntrant
	Laps    []RawLap
}

// FastestLapSamples is the fastest lap's telemetry for circuit-length
// derivation; lacking data, callers fall back to
// telemetry.DefaultCircuitLength.
type FastestLapSamples struct {
	DriverCode string
	Points     []RawPoint
}

// OfficialClassification is the session's final standings, consulted by
// stage 5's "Session finished AND official classification available"
// ordering branch.
type OfficialClassification struct {
	Available bool
	// Order lists driver codes from 1st to last.
	Order []string
}

// GridPositions maps driver code to starting grid slot (1-indexed). Empty
// when upstream did not supply grid data, in which case stage 5 falls
// back to race_progress ordering from frame 0.
type GridPositions map[string]int
