// resample.go — Stage 3: global timeline alignment.
//
// The pipeline asserts monotonicity in stage 1 and again at the end of
// extraction, so this stage can linearly interpolate directly onto the
// uniform timeline without re-sorting: monotonicity is established
// before interpolation, so the argsort that would otherwise be required
// can be skipped.
package telemetry

import (
	"math"

	"github.com/f1telemetry/replay-engine/internal/types"
)

// Resampled holds one driver's channels resampled onto the shared
// timeline. Every slice has the same length as Timeline.
type Resampled struct {
	Entrant types.DriverEntrant

	X, Y        []float64
	LapDistance []float64
	Lap         []int
	Tyre        []string
	Speed       []float64
	Gear        []int
	DRS         []int
	Throttle    []float64
	Brake       []float64
	RPM         []float64
	RelDist     []float64
	InPit       []bool
	HasInPit    bool

	LapAnchors map[int]int
}

// BuildTimeline computes t_min and the uniform timeline
// timeline[i] = i*Δt for i in [0, ceil((t_max-t_min)/Δt)). series must
// be non-empty.
func BuildTimeline(all map[string]*DriverSeries, deltaSeconds float64) (timeline []float64, tMin float64) {
	tMin = math.Inf(1)
	tMax := math.Inf(-1)
	for _, s := range all {
		if s.Len() == 0 {
			continue
		}
		if first := s.Time[0]; first < tMin {
			tMin = first
		}
		if last := s.Time[s.Len()-1]; last > tMax {
			tMax = last
		}
	}
	if math.IsInf(tMin, 1) {
		return nil, 0
	}
	n := int(math.Ceil((tMax - tMin) / deltaSeconds))
	if n < 1 {
		n = 1
	}
	timeline = make([]float64, n)
	for i := range timeline {
		timeline[i] = float64(i) * deltaSeconds
	}
	return timeline, tMin
}

// ResampleDriver interpolates one driver's series onto timeline, after
// translating timestamps by -tMin. Outside the driver's own observed
// time range, channels are extrapolated by holding the nearest observed
// endpoint constant. This guarantees every produced frame contains
// every entrant, even one present for only part of the session.
func ResampleDriver(s *DriverSeries, timeline []float64, tMin float64) Resampled {
	n := s.Len()
	local := make([]float64, n)
	for i, t := range s.Time {
		local[i] = t - tMin
	}

	r := Resampled{
		Entrant:    s.Entrant,
		X:          interpFloat(local, s.X, timeline),
		Y:          interpFloat(local, s.Y, timeline),
		LapDistance: interpFloat(local, s.LapDistance, timeline),
		Speed:      interpFloat(local, s.Speed, timeline),
		Throttle:   clamp01Slice(interpFloat(local, s.Throttle, timeline)),
		Brake:      clamp01Slice(interpFloat(local, s.Brake, timeline)),
		RPM:        interpFloat(local, s.RPM, timeline),
		HasInPit:   s.HasInPit,
		LapAnchors: s.LapAnchors,
	}
	r.Lap = roundIntSlice(interpInt(local, s.LapNumber, timeline))
	r.Gear = roundIntSlice(interpInt(local, s.Gear, timeline))
	r.DRS = roundIntSlice(interpInt(local, s.DRS, timeline))
	r.Tyre = nearestString(local, s.Tyre, timeline)
	if s.HasInPit {
		r.InPit = nearestBool(local, s.InPit, timeline)
	}

	r.RelDist = make([]float64, len(timeline))
	for i := range r.RelDist {
		r.RelDist[i] = relDistFrom(r.LapDistance[i])
	}

	return r
}

// relDistFrom fills Resampled.RelDist with a placeholder: the lap
// distance in meters, with negative values clamped to 0. It is not a
// [0,1] fraction, since circuit length is not known yet; raceprogress.go
// computes the real rel_dist from LapDistance and the circuit length.
func relDistFrom(lapDistance float64) float64 {
	if lapDistance < 0 {
		return 0
	}
	return lapDistance
}

func clampFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01Slice(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		v = clampFinite(v)
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		out[i] = v
	}
	return out
}

// interpFloat linearly interpolates src (sampled at localTime) onto
// timeline, holding the nearest endpoint constant outside [localTime[0],
// localTime[last]].
func interpFloat(localTime, src []float64, timeline []float64) []float64 {
	out := make([]float64, len(timeline))
	if len(localTime) == 0 {
		return out
	}
	if len(localTime) == 1 {
		v := clampFinite(src[0])
		for i := range out {
			out[i] = v
		}
		return out
	}

	j := 0
	for i, t := range timeline {
		if t <= localTime[0] {
			out[i] = clampFinite(src[0])
			continue
		}
		if t >= localTime[len(localTime)-1] {
			out[i] = clampFinite(src[len(src)-1])
			continue
		}
		for j < len(localTime)-2 && localTime[j+1] < t {
			j++
		}
		t0, t1 := localTime[j], localTime[j+1]
		v0, v1 := src[j], src[j+1]
		if t1 == t0 {
			out[i] = clampFinite(v0)
			continue
		}
		frac := (t - t0) / (t1 - t0)
		out[i] = clampFinite(v0 + frac*(v1-v0))
	}
	return out
}

// interpInt interpolates an integer channel as float64 then leaves
// rounding to roundIntSlice: integer channels are interpolated linearly
// and rounded only at the end, to avoid compounding rounding error.
func interpInt(localTime []float64, src []int, timeline []float64) []float64 {
	f := make([]float64, len(src))
	for i, v := range src {
		f[i] = float64(v)
	}
	return interpFloat(localTime, f, timeline)
}

func roundIntSlice(in []float64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(math.Round(v))
	}
	return out
}

// nearestString holds the nearest-preceding sample's string value;
// string channels (tyre compound) are not numeric and cannot be
// linearly interpolated.
func nearestString(localTime []float64, src []string, timeline []float64) []string {
	out := make([]string, len(timeline))
	if len(localTime) == 0 {
		return out
	}
	j := 0
	for i, t := range timeline {
		for j < len(localTime)-1 && localTime[j+1] <= t {
			j++
		}
		out[i] = src[j]
	}
	return out
}

func nearestBool(localTime []float64, src []bool, timeline []float64) []bool {
	out := make([]bool, len(timeline))
	if len(localTime) == 0 {
		return out
	}
	j := 0
	for i, t := range timeline {
		for j < len(localTime)-1 && localTime[j+1] <= t {
			j++
		}
		out[i] = src[j]
	}
	return out
}
