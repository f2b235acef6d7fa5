// pipeline.go — Orchestrates stages 1-5 into the single RunPipeline
// entry point the session orchestrator calls on the CPU worker pool.
package telemetry

import (
	"context"
	"time"

	"github.com/f1telemetry/replay-engine/internal/types"
)

// LoadInput is everything the pipeline needs for one session's race/
// practice load. Fetching it from an upstream provider is someone
// else's job; these are assumed to already be plain values.
type LoadInput struct {
	Year          int
	Round         int
	SessionType   string
	RaceStartTime time.Time

	Drivers       []types.RawDriverInput
	Fastest       *types.FastestLapSamples
	Grid          types.GridPositions
	Official      types.OfficialClassification
	TrackGeometry types.TrackGeometry
	TrackStatuses []types.TrackStatusInterval
	Weather       []WeatherPoint
}

// WeatherPoint is one upstream weather sample. Each frame takes the
// latest sample at or before its time (see attachWeather).
type WeatherPoint struct {
	SessionTime float64
	types.WeatherSample
}

// ProgressFunc receives stage-boundary progress updates. progress is
// monotonically non-decreasing across a single RunPipeline call.
type ProgressFunc func(progress int, message string)

// Result is the pipeline's full output.
type Result struct {
	Frames        []types.Frame
	Metadata      types.SessionMetadata
	TrackStatuses []types.TrackStatusInterval
	Warnings      []error
}

// RunPipeline executes stages 1-5 for a race/practice session. It is
// meant to be invoked on the CPU worker pool side of the two-scheduler
// bridge — it does no channel I/O and touches no subscriber state.
func RunPipeline(ctx context.Context, workers int, deltaSeconds, hysteresisMeters, gridLockSeconds float64, in LoadInput, progress ProgressFunc) (*Result, error) {
	notify := progress
	if notify == nil {
		notify = func(int, string) {}
	}

	notify(0, "Starting telemetry load…")

	series, err := ExtractAll(ctx, in.Drivers, workers)
	if err != nil {
		return nil, err
	}
	notify(20, "Extracted per-driver telemetry")

	circuitLength := CircuitLength(in.Fastest)
	geo := in.TrackGeometry
	if geo.CircuitLength <= 0 {
		geo.CircuitLength = circuitLength
	}
	notify(30, "Derived circuit geometry")

	timeline, tMin := BuildTimeline(series, deltaSeconds)
	notify(45, "Built global timeline")

	timelines := make(map[string]DriverTimeline, len(series))
	totalLaps := 0
	for code, s := range series {
		resampled := ResampleDriver(s, timeline, tMin)
		dtl := ComputeRaceProgress(resampled, circuitLength, geo)
		timelines[code] = dtl
		for _, lap := range dtl.Lap {
			if lap > totalLaps {
				totalLaps = lap
			}
		}
	}
	notify(65, "Resampled and computed race progress")

	framesResult := BuildFrames(BuildFramesInput{
		Timelines:        timelines,
		Timeline:         timeline,
		DeltaSeconds:     deltaSeconds,
		TrackStatuses:    in.TrackStatuses,
		Grid:             in.Grid,
		Official:         in.Official,
		GridLockSeconds:  gridLockSeconds,
		HysteresisMeters: hysteresisMeters,
	})
	notify(85, "Assembled and ordered frames")

	attachWeather(framesResult.Frames, in.Weather, timeline, tMin)

	metadata := buildMetadata(in, totalLaps, geo)
	notify(100, "Ready for playback")

	return &Result{
		Frames:        framesResult.Frames,
		Metadata:      metadata,
		TrackStatuses: in.TrackStatuses,
		Warnings:      framesResult.Warnings,
	}, nil
}

func buildMetadata(in LoadInput, totalLaps int, geo types.TrackGeometry) types.SessionMetadata {
	colors := make(map[string]types.RGB, len(in.Drivers))
	numbers := make(map[string]int, len(in.Drivers))
	teams := make(map[string]string, len(in.Drivers))
	stints := make(map[string][]types.TyreStint, len(in.Drivers))

	for _, d := range in.Drivers {
		colors[d.Entrant.Code] = d.Entrant.Color
		numbers[d.Entrant.Code] = d.Entrant.Number
		teams[d.Entrant.Code] = d.Entrant.Team
		stints[d.Entrant.Code] = tyreStints(d)
	}

	return types.SessionMetadata{
		Year: in.Year, Round: in.Round, SessionType: in.SessionType,
		TotalLaps: totalLaps, RaceStartTime: in.RaceStartTime,
		DriverColors: colors, DriverNumbers: numbers, DriverTeams: teams,
		TrackGeometry: geo, TyreStints: stints,
	}
}

// tyreStints derives compound stints from raw lap data: each lap's
// first sample's tyre compound, collapsed into contiguous runs.
func tyreStints(d types.RawDriverInput) []types.TyreStint {
	var stints []types.TyreStint
	var cur *types.TyreStint
	for _, lap := range d.Laps {
		if len(lap.Points) == 0 {
			continue
		}
		compound := lap.Points[0].Tyre
		if cur == nil || cur.Compound != compound {
			if cur != nil {
				stints = append(stints, *cur)
			}
			cur = &types.TyreStint{Compound: compound, LapIn: lap.LapNumber, LapOut: lap.LapNumber}
		} else {
			cur.LapOut = lap.LapNumber
		}
	}
	if cur != nil {
		stints = append(stints, *cur)
	}
	return stints
}

// attachWeather attaches weather to each frame, when upstream supplied
// any: weather times are translated by -tMin onto the frame timeline and
// each frame takes the latest sample at or before its time (frames
// before the first sample take the first sample).
func attachWeather(frames []types.Frame, weather []WeatherPoint, timeline []float64, tMin float64) {
	if len(weather) == 0 {
		return
	}
	j := 0
	for i := range frames {
		t := timeline[i]
		for j < len(weather)-1 && weather[j+1].SessionTime-tMin <= t {
			j++
		}
		w := weather[j].WeatherSample
		frames[i].Weather = &w
	}
}
