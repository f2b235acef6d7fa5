// extract.go — Stage 1: per-driver extraction, run in parallel across
// true OS threads. Sorting happens at lap granularity (tens of items)
// rather than point granularity (hundreds of thousands), since a naive
// concatenate-then-sort would dominate the stage's cost.
package telemetry

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/f1telemetry/replay-engine/internal/replayerr"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// ChunkSize computes ceil(drivers / (workers*4)). It governs how many
// drivers' extraction jobs are grouped per errgroup task so a single
// slow driver doesn't serialize behind per-task dispatch overhead.
func ChunkSize(drivers, workers int) int {
	if workers <= 0 {
		workers = 1
	}
	denom := workers * 4
	if denom <= 0 {
		denom = 1
	}
	if drivers <= 0 {
		return 1
	}
	n := (drivers + denom - 1) / denom
	if n < 1 {
		n = 1
	}
	return n
}

// ExtractAll runs stage 1 across all entrants in parallel, using
// errgroup.Group with SetLimit(workers) for true CPU parallelism. Any
// per-driver error fails the whole load: extraction has no partial-
// success mode.
func ExtractAll(ctx context.Context, inputs []types.RawDriverInput, workers int) (map[string]*DriverSeries, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(inputs) && len(inputs) > 0 {
		workers = len(inputs)
	}

	chunk := ChunkSize(len(inputs), workers)
	results := make([]*DriverSeries, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(inputs); start += chunk {
		end := start + chunk
		if end > len(inputs) {
			end = len(inputs)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				series, err := extractDriver(inputs[i])
				if err != nil {
					return &replayerr.LoadFailure{
						Reason: fmt.Sprintf("driver %s extraction", inputs[i].Entrant.Code),
						Cause:  err,
					}
				}
				results[i] = series
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*DriverSeries, len(inputs))
	for i, s := range results {
		out[inputs[i].Entrant.Code] = s
		_ = i
	}
	return out, nil
}

// extractDriver implements stage 1 for a single entrant: per-lap
// monotonicity assertions, sort laps by start time, concatenate, and a
// final monotonicity assertion over the concatenated series.
func extractDriver(in types.RawDriverInput) (*DriverSeries, error) {
	type lapBundle struct {
		startTime float64
		lap       types.RawLap
	}

	bundles := make([]lapBundle, 0, len(in.Laps))
	for _, lap := range in.Laps {
		if len(lap.Points) == 0 {
			continue
		}
		for i := 1; i < len(lap.Points); i++ {
			if lap.Points[i].SessionTime < lap.Points[i-1].SessionTime {
				return nil, fmt.Errorf("lap %d: non-monotonic sample time at index %d", lap.LapNumber, i)
			}
		}
		bundles = append(bundles, lapBundle{startTime: lap.Points[0].SessionTime, lap: lap})
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("no telemetry laps")
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].startTime < bundles[j].startTime
	})

	for i := 1; i < len(bundles); i++ {
		prevLast := bundles[i-1].lap.Points[len(bundles[i-1].lap.Points)-1].SessionTime
		curFirst := bundles[i].lap.Points[0].SessionTime
		if curFirst < prevLast {
			return nil, fmt.Errorf("lap %d starts (t=%.3f) before lap %d ends (t=%.3f)",
				bundles[i].lap.LapNumber, curFirst, bundles[i-1].lap.LapNumber, prevLast)
		}
	}

	series := &DriverSeries{
		Entrant:    in.Entrant,
		LapAnchors: make(map[int]int),
	}

	hasAnyInPit := false
	for _, b := range bundles {
		for _, p := range b.lap.Points {
			series.Time = append(series.Time, p.SessionTime)
			series.X = append(series.X, p.X)
			series.Y = append(series.Y, p.Y)
			series.LapDistance = append(series.LapDistance, p.LapDistance)
			series.LapNumber = append(series.LapNumber, b.lap.LapNumber)
			series.Tyre = append(series.Tyre, p.Tyre)
			series.Speed = append(series.Speed, p.Speed)
			series.Gear = append(series.Gear, p.Gear)
			series.DRS = append(series.DRS, p.DRS)
			series.Throttle = append(series.Throttle, p.Throttle)
			series.Brake = append(series.Brake, p.Brake)
			series.RPM = append(series.RPM, p.RPM)

			flag := false
			if p.InPit != nil {
				flag = *p.InPit
				hasAnyInPit = true
			}
			series.InPit = append(series.InPit, flag)

			if p.LapAnchorPosition != nil {
				series.LapAnchors[b.lap.LapNumber] = *p.LapAnchorPosition
			}
		}
	}
	series.HasInPit = hasAnyInPit

	for i := 1; i < len(series.Time); i++ {
		if series.Time[i] < series.Time[i-1] {
			return nil, fmt.Errorf("concatenated series non-monotonic at index %d", i)
		}
	}

	return series, nil
}
