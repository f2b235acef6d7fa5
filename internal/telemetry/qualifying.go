// qualifying.go — Qualifying variant: a segment-keyed structure instead
// of a global frame sequence. Each driver's fastest lap per segment
// gets its own per-driver timeline starting at t=0; there is no stage 5
// (no shared timeline, no ordering, no frames streamed by the gateway).
package telemetry

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/f1telemetry/replay-engine/internal/replayerr"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// QualifyingDriverInput is one driver's fastest lap in one segment.
type QualifyingDriverInput struct {
	Entrant   types.DriverEntrant
	Lap       types.RawLap
	LapTimeMS int64
}

// QualifyingSegmentInput bundles a segment's drivers (keyed by code).
type QualifyingSegmentInput struct {
	Drivers map[string]QualifyingDriverInput
}

// QualifyingFrame is one sample on a driver's per-segment timeline.
// There is no position/dist/race_progress: qualifying segments are not
// ordered.
type QualifyingFrame struct {
	T        float64 `json:"t"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"`
	Gear     int     `json:"gear"`
	DRS      int     `json:"drs"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	RPM      float64 `json:"rpm"`
}

// QualifyingDriverResult is one driver's interpolated fastest lap.
type QualifyingDriverResult struct {
	Frames    []QualifyingFrame `json:"frames"`
	LapTimeMS int64             `json:"lap_time_ms"`
}

// QualifyingSegment is one of Q1/Q2/Q3.
type QualifyingSegment struct {
	Duration float64                            `json:"duration"`
	Drivers  map[string]QualifyingDriverResult `json:"drivers"`
}

// QualifyingResult is the full qualifying-session payload the gateway
// delivers as a single JSON message.
type QualifyingResult struct {
	Segments map[string]QualifyingSegment `json:"segments"`
}

// BuildQualifyingSegments shares stage 1's per-driver extraction and
// stage 3's interpolation machinery with the race pipeline, applied per
// driver per segment rather than onto one shared timeline.
func BuildQualifyingSegments(ctx context.Context, workers int, deltaSeconds float64, segments map[string]QualifyingSegmentInput) (*QualifyingResult, error) {
	result := &QualifyingResult{Segments: make(map[string]QualifyingSegment, len(segments))}

	for segKey, seg := range segments {
		drivers, duration, err := buildSegment(ctx, workers, deltaSeconds, seg)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", segKey, err)
		}
		result.Segments[segKey] = QualifyingSegment{Duration: duration, Drivers: drivers}
	}

	return result, nil
}

func buildSegment(ctx context.Context, workers int, deltaSeconds float64, seg QualifyingSegmentInput) (map[string]QualifyingDriverResult, float64, error) {
	codes := make([]string, 0, len(seg.Drivers))
	for code := range seg.Drivers {
		codes = append(codes, code)
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(codes) && len(codes) > 0 {
		workers = len(codes)
	}

	out := make(map[string]QualifyingDriverResult, len(codes))
	var maxDuration float64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	type driverResult struct {
		code   string
		result QualifyingDriverResult
		dur    float64
	}
	results := make([]driverResult, len(codes))

	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			driver := seg.Drivers[code]
			in := types.RawDriverInput{Entrant: driver.Entrant, Laps: []types.RawLap{driver.Lap}}
			series, err := extractDriver(in)
			if err != nil {
				return &replayerr.LoadFailure{Reason: fmt.Sprintf("qualifying driver %s extraction", code), Cause: err}
			}
			frames, dur := resampleSegmentDriver(series, deltaSeconds)
			results[i] = driverResult{
				code:   code,
				result: QualifyingDriverResult{Frames: frames, LapTimeMS: driver.LapTimeMS},
				dur:    dur,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	for _, r := range results {
		out[r.code] = r.result
		if r.dur > maxDuration {
			maxDuration = r.dur
		}
	}
	return out, maxDuration, nil
}

// resampleSegmentDriver builds a timeline starting at t=0 local to this
// driver's single lap and interpolates onto it, reusing stage 3's
// interpolation helpers.
func resampleSegmentDriver(s *DriverSeries, deltaSeconds float64) ([]QualifyingFrame, float64) {
	n := s.Len()
	if n == 0 {
		return nil, 0
	}

	t0 := s.Time[0]
	duration := s.Time[n-1] - t0
	local := make([]float64, n)
	for i, t := range s.Time {
		local[i] = t - t0
	}

	steps := int(duration/deltaSeconds) + 1
	if steps < 1 {
		steps = 1
	}
	timeline := make([]float64, steps)
	for i := range timeline {
		timeline[i] = float64(i) * deltaSeconds
	}

	x := interpFloat(local, s.X, timeline)
	y := interpFloat(local, s.Y, timeline)
	speed := interpFloat(local, s.Speed, timeline)
	throttle := clamp01Slice(interpFloat(local, s.Throttle, timeline))
	brake := clamp01Slice(interpFloat(local, s.Brake, timeline))
	rpm := interpFloat(local, s.RPM, timeline)
	gear := roundIntSlice(interpInt(local, s.Gear, timeline))
	drs := roundIntSlice(interpInt(local, s.DRS, timeline))

	frames := make([]QualifyingFrame, steps)
	for i := range frames {
		frames[i] = QualifyingFrame{
			T: timeline[i], X: x[i], Y: y[i], Speed: speed[i],
			Gear: clampGear(gear[i]), DRS: drs[i], Throttle: throttle[i], Brake: brake[i], RPM: rpm[i],
		}
	}
	return frames, duration
}
