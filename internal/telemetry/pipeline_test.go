// pipeline_test.go — End-to-end tests for RunPipeline tying stages 1-5
// together.
package telemetry

import (
	"context"
	"testing"

	"github.com/f1telemetry/replay-engine/internal/types"
)

func driverInput(code string, startTime float64) types.RawDriverInput {
	points := make([]types.RawPoint, 0, 5)
	for i := 0; i < 5; i++ {
		points = append(points, types.RawPoint{
			SessionTime: startTime + float64(i),
			LapDistance: float64(i) * 1000,
			Tyre:        "MEDIUM",
			Speed:       250,
		})
	}
	return types.RawDriverInput{
		Entrant: types.DriverEntrant{Code: code},
		Laps:    []types.RawLap{{LapNumber: 1, Points: points}},
	}
}

func TestRunPipeline_ProducesFramesWithEveryDriverPresent(t *testing.T) {
	t.Parallel()
	in := LoadInput{
		Year: 2024, Round: 6, SessionType: "R",
		Drivers: []types.RawDriverInput{driverInput("VER", 0), driverInput("HAM", 0.5)},
	}

	var progressCalls []int
	result, err := RunPipeline(context.Background(), 2, 1.0, 10, 0, in, func(p int, msg string) {
		progressCalls = append(progressCalls, p)
	})
	if err != nil {
		t.Fatalf("RunPipeline() error = %v", err)
	}
	if len(result.Frames) == 0 {
		t.Fatal("RunPipeline() produced no frames")
	}
	for _, frame := range result.Frames {
		if len(frame.Drivers) != 2 {
			t.Errorf("frame %d has %d drivers, want 2", frame.Index, len(frame.Drivers))
		}
	}
	if len(progressCalls) == 0 {
		t.Error("expected at least one progress callback")
	}
	for i := 1; i < len(progressCalls); i++ {
		if progressCalls[i] < progressCalls[i-1] {
			t.Errorf("progress regressed: %v", progressCalls)
		}
	}
	if progressCalls[len(progressCalls)-1] != 100 {
		t.Errorf("final progress = %d, want 100", progressCalls[len(progressCalls)-1])
	}
}

func TestRunPipeline_DerivesTotalLapsFromDriverTimelines(t *testing.T) {
	t.Parallel()
	in := LoadInput{
		Drivers: []types.RawDriverInput{driverInput("VER", 0)},
	}
	result, err := RunPipeline(context.Background(), 1, 1.0, 10, 0, in, nil)
	if err != nil {
		t.Fatalf("RunPipeline() error = %v", err)
	}
	if result.Metadata.TotalLaps < 1 {
		t.Errorf("TotalLaps = %d, want >= 1", result.Metadata.TotalLaps)
	}
}

func TestRunPipeline_PropagatesExtractionFailure(t *testing.T) {
	t.Parallel()
	in := LoadInput{
		Drivers: []types.RawDriverInput{
			{Entrant: types.DriverEntrant{Code: "VER"}, Laps: []types.RawLap{
				{LapNumber: 1, Points: []types.RawPoint{{SessionTime: 5}, {SessionTime: 1}}},
			}},
		},
	}
	if _, err := RunPipeline(context.Background(), 1, 1.0, 10, 0, in, nil); err == nil {
		t.Error("RunPipeline() error = nil, want non-nil for non-monotonic input")
	}
}
