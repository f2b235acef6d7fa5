// metadata.go — SessionMetadata and the track/geometry types the pipeline
// derives once per session and the gateway serves read-only after READY.
package types

import "time"

// RGB is a driver's team color.
type RGB struct {
	R, G, B uint8
}

// TyreStint summarizes one compound stint for a driver, derived from the
// raw laps: each lap's first-sample compound, with consecutive laps on
// the same compound collapsed into one stint.
type TyreStint struct {
	Compound string `json:"compound"`
	LapIn    int    `json:"lap_in"`
	LapOut   int    `json:"lap_out"`
}

// SectorBoundary marks a sector split point as accumulated track distance.
type SectorBoundary struct {
	Sector int     `json:"sector"`
	Dist   float64 `json:"dist"`
}

// TrackGeometry is the circuit shape data the pipeline consults for pit-lane
// detection and circuit length fallback.
type TrackGeometry struct {
	CircuitLength float64          `json:"circuit_length"`
	PitEntry      [2]float64       `json:"pit_entry"`
	PitExit       [2]float64       `json:"pit_exit"`
	PitRadius     float64          `json:"pit_radius"`
	Sectors       []SectorBoundary `json:"sectors,omitempty"`
}

// SessionMetadata is the immutable-after-READY bundle describing a session.
type SessionMetadata struct {
	Year          int                  `json:"year"`
	Round         int                  `json:"round"`
	SessionType   string               `json:"session_type"`
	TotalLaps     int                  `json:"total_laps"`
	RaceStartTime time.Time            `json:"race_start_time"`
	DriverColors  map[string]RGB       `json:"driver_colors"`
	DriverNumbers map[string]int       `json:"driver_numbers"`
	DriverTeams   map[string]string    `json:"driver_teams"`
	TrackGeometry TrackGeometry        `json:"track_geometry"`
	TyreStints    map[string][]TyreStint `json:"tyre_stints,omitempty"`
}

// TrackStatusInterval is one safety-car/VSC/red-flag interval.
type TrackStatusInterval struct {
	StartTime float64  `json:"start_time"`
	EndTime   *float64 `json:"end_time,omitempty"`
	Status    string   `json:"status"`
}

// ActiveAt reports whether t falls within this interval.
func (t TrackStatusInterval) ActiveAt(at float64) bool {
	if at < t.StartTime {
		return false
	}
	if t.EndTime != nil && at > *t.EndTime {
		return false
	}
	return true
}

// HysteresisSuppressed reports whether position-swap hysteresis should be
// disabled at time `at`: hysteresis is disabled during safety car / VSC
// / red-flag intervals so official position changes propagate
// immediately.
func HysteresisSuppressed(statuses []TrackStatusInterval, at float64) bool {
	for _, s := range statuses {
		if !s.ActiveAt(at) {
			continue
		}
		switch s.Status {
		case "SafetyCar", "VSC", "Red":
			return true
		}
	}
	return false
}
