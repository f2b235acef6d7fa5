// raceprogress_test.go — Tests for stage 4 race progress and pit freeze.
package telemetry

import (
	"testing"

	"github.com/f1telemetry/replay-engine/internal/types"
)

func resampledFixture(lapDistance []float64, lap []int, inPit []bool, hasInPit bool) Resampled {
	n := len(lapDistance)
	zeros := make([]float64, n)
	zeroInts := make([]int, n)
	tyres := make([]string, n)
	for i := range tyres {
		tyres[i] = "MEDIUM"
	}
	return Resampled{
		X: zeros, Y: zeros, LapDistance: lapDistance, Lap: lap, Tyre: tyres,
		Speed: zeros, Gear: zeroInts, DRS: zeroInts, Throttle: zeros, Brake: zeros, RPM: zeros,
		InPit: inPit, HasInPit: hasInPit,
	}
}

func TestComputeRaceProgress_AccumulatesAcrossLaps(t *testing.T) {
	t.Parallel()
	r := resampledFixture(
		[]float64{0, 2500, 0, 2500},
		[]int{1, 1, 2, 2},
		nil, false,
	)
	geo := types.TrackGeometry{}

	dtl := ComputeRaceProgress(r, 5000, geo)
	want := []float64{0, 2500, 5000, 7500}
	for i, w := range want {
		if dtl.RaceProgress[i] != w {
			t.Errorf("RaceProgress[%d] = %v, want %v", i, dtl.RaceProgress[i], w)
		}
	}
}

func TestComputeRaceProgress_FreezesWhileInPit(t *testing.T) {
	t.Parallel()
	r := resampledFixture(
		[]float64{4000, 4500, 0, 500},
		[]int{1, 1, 2, 2},
		[]bool{false, true, true, false},
		true,
	)
	geo := types.TrackGeometry{}

	dtl := ComputeRaceProgress(r, 5000, geo)
	frozenAt := dtl.RaceProgress[1]
	if dtl.RaceProgress[2] != frozenAt {
		t.Errorf("RaceProgress[2] = %v, want frozen at %v (still in pit)", dtl.RaceProgress[2], frozenAt)
	}
	if dtl.RaceProgress[3] == frozenAt {
		t.Error("RaceProgress[3] should resume advancing once out of the pit")
	}
}

func TestComputeRaceProgress_ExplicitFlagOverridesGeometry(t *testing.T) {
	t.Parallel()
	r := resampledFixture(
		[]float64{0},
		[]int{1},
		[]bool{true},
		true,
	)
	geo := types.TrackGeometry{PitEntry: [2]float64{99999, 99999}, PitExit: [2]float64{99999, 99999}, PitRadius: 1}

	dtl := ComputeRaceProgress(r, 5000, geo)
	if !dtl.InPit[0] {
		t.Error("InPit[0] = false, want true (explicit flag should override geometry miss)")
	}
}

func TestComputeRaceProgress_RelDistClampedToUnitRange(t *testing.T) {
	t.Parallel()
	r := resampledFixture([]float64{-100, 6000}, []int{1, 1}, nil, false)
	dtl := ComputeRaceProgress(r, 5000, types.TrackGeometry{})
	if dtl.RelDist[0] != 0 {
		t.Errorf("RelDist[0] = %v, want clamped to 0", dtl.RelDist[0])
	}
	if dtl.RelDist[1] != 1 {
		t.Errorf("RelDist[1] = %v, want clamped to 1", dtl.RelDist[1])
	}
}
