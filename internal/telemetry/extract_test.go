// extract_test.go — Tests for stage 1 per-driver extraction.
package telemetry

import (
	"context"
	"testing"

	"github.com/f1telemetry/replay-engine/internal/types"
)

func point(t, dist float64) types.RawPoint {
	return types.RawPoint{SessionTime: t, LapDistance: dist, Tyre: "MEDIUM"}
}

func TestExtractDriver_ConcatenatesLapsInOrder(t *testing.T) {
	t.Parallel()
	in := types.RawDriverInput{
		Entrant: types.DriverEntrant{Code: "VER"},
		Laps: []types.RawLap{
			{LapNumber: 2, Points: []types.RawPoint{point(90, 0), point(91, 10)}},
			{LapNumber: 1, Points: []types.RawPoint{point(0, 0), point(1, 10)}},
		},
	}

	series, err := extractDriver(in)
	if err != nil {
		t.Fatalf("extractDriver() error = %v", err)
	}
	want := []float64{0, 1, 90, 91}
	if len(series.Time) != len(want) {
		t.Fatalf("len(Time) = %d, want %d", len(series.Time), len(want))
	}
	for i, v := range want {
		if series.Time[i] != v {
			t.Errorf("Time[%d] = %v, want %v", i, series.Time[i], v)
		}
	}
}

func TestExtractDriver_RejectsNonMonotonicLap(t *testing.T) {
	t.Parallel()
	in := types.RawDriverInput{
		Entrant: types.DriverEntrant{Code: "HAM"},
		Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(5, 0), point(2, 10)}},
		},
	}

	if _, err := extractDriver(in); err == nil {
		t.Error("extractDriver() error = nil, want non-nil for non-monotonic lap")
	}
}

func TestExtractDriver_RejectsOverlappingLaps(t *testing.T) {
	t.Parallel()
	in := types.RawDriverInput{
		Entrant: types.DriverEntrant{Code: "HAM"},
		Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(0, 0), point(10, 10)}},
			{LapNumber: 2, Points: []types.RawPoint{point(5, 0), point(15, 10)}},
		},
	}

	if _, err := extractDriver(in); err == nil {
		t.Error("extractDriver() error = nil, want non-nil for overlapping laps")
	}
}

func TestChunkSize_MatchesSpecFormula(t *testing.T) {
	t.Parallel()
	cases := []struct{ drivers, workers, want int }{
		{20, 4, 2},
		{1, 4, 1},
		{0, 4, 1},
		{100, 8, 4},
	}
	for _, c := range cases {
		if got := ChunkSize(c.drivers, c.workers); got != c.want {
			t.Errorf("ChunkSize(%d, %d) = %d, want %d", c.drivers, c.workers, got, c.want)
		}
	}
}

func TestExtractAll_FailsWholeLoadOnAnyDriverError(t *testing.T) {
	t.Parallel()
	inputs := []types.RawDriverInput{
		{Entrant: types.DriverEntrant{Code: "VER"}, Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(0, 0), point(1, 10)}},
		}},
		{Entrant: types.DriverEntrant{Code: "HAM"}, Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(5, 0), point(2, 10)}},
		}},
	}

	_, err := ExtractAll(context.Background(), inputs, 2)
	if err == nil {
		t.Fatal("ExtractAll() error = nil, want non-nil when one driver fails")
	}
}

func TestExtractAll_ProducesSeriesPerDriver(t *testing.T) {
	t.Parallel()
	inputs := []types.RawDriverInput{
		{Entrant: types.DriverEntrant{Code: "VER"}, Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(0, 0), point(1, 10)}},
		}},
		{Entrant: types.DriverEntrant{Code: "HAM"}, Laps: []types.RawLap{
			{LapNumber: 1, Points: []types.RawPoint{point(0, 0), point(1, 10)}},
		}},
	}

	series, err := ExtractAll(context.Background(), inputs, 2)
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2", len(series))
	}
	if _, ok := series["VER"]; !ok {
		t.Error("series missing VER")
	}
	if _, ok := series["HAM"]; !ok {
		t.Error("series missing HAM")
	}
}
