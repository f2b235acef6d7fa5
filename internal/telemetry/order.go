// order.go — Stage 5: frame assembly and position ordering.
package telemetry

import (
	"sort"
	"strconv"

	"github.com/f1telemetry/replay-engine/internal/replayerr"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// RetirementWindowSeconds is the rolling window used to detect a retired
// driver: speed held at (approximately) zero for at least this long.
const RetirementWindowSeconds = 10.0

const retirementSpeedEpsilon = 0.5

// BuildFramesInput bundles everything stage 5 needs.
type BuildFramesInput struct {
	Timelines        map[string]DriverTimeline
	Timeline         []float64
	DeltaSeconds     float64
	TrackStatuses    []types.TrackStatusInterval
	Grid             types.GridPositions
	Official         types.OfficialClassification
	GridLockSeconds  float64
	HysteresisMeters float64
}

// BuildFramesResult is stage 5's output plus any non-fatal anomalies
// (replayerr.InvariantWarning): an invariant check emits a warning, not
// a failure.
type BuildFramesResult struct {
	Frames   []types.Frame
	Warnings []error
}

// BuildFrames assembles the ordered frame sequence from per-driver
// timelines, applying grid/official/race-progress ordering, position
// hysteresis, retirement exclusion, and lap-anchor snapping.
func BuildFrames(in BuildFramesInput) BuildFramesResult {
	codes := make([]string, 0, len(in.Timelines))
	for code := range in.Timelines {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	retiredAt := detectRetirements(in.Timelines, codes, in.DeltaSeconds)

	result := BuildFramesResult{Frames: make([]types.Frame, len(in.Timeline))}
	var prevOrder []string
	retiredSoFar := make([]string, 0)
	retiredSeen := make(map[string]bool, len(codes))

	for i, t := range in.Timeline {
		active := make([]string, 0, len(codes))
		for _, code := range codes {
			if ra, ok := retiredAt[code]; ok && i >= ra {
				if !retiredSeen[code] {
					retiredSeen[code] = true
					retiredSoFar = append(retiredSoFar, code)
				}
				continue
			}
			active = append(active, code)
		}

		order := orderActive(active, in.Timelines, t, i, len(in.Timeline), in)

		if prevOrder != nil {
			order = applyHysteresis(order, prevOrder, in.Timelines, i, in.HysteresisMeters, in.TrackStatuses, t)
		}

		order = append(order, retiredSoFar...)
		prevOrder = order

		frame := types.Frame{Index: i, T: t, Drivers: make(map[string]*types.DriverSample, len(codes))}
		leaderLap := 0
		for pos, code := range order {
			dtl := in.Timelines[code]
			status := types.StatusRunning
			if retiredSeen[code] && containsBeforeOrAt(retiredAt, code, i) {
				status = types.StatusRetired
			} else if dtl.InPit[i] {
				status = types.StatusInPit
			}
			sample := &types.DriverSample{
				X: dtl.X[i], Y: dtl.Y[i],
				Dist: dtl.Dist[i], RelDist: dtl.RelDist[i], RaceProgress: dtl.RaceProgress[i],
				Lap: dtl.Lap[i], Tyre: dtl.Tyre[i], Speed: dtl.Speed[i], Gear: clampGear(dtl.Gear[i]),
				DRS: dtl.DRS[i], Throttle: dtl.Throttle[i], Brake: dtl.Brake[i], RPM: dtl.RPM[i],
				Position: pos + 1, Status: status,
			}
			frame.Drivers[code] = sample
			if dtl.Lap[i] > leaderLap {
				leaderLap = dtl.Lap[i]
			}
		}
		frame.LeaderLap = leaderLap
		result.Frames[i] = frame
	}

	result.Warnings = append(result.Warnings, checkDistMonotonic(in.Timelines, codes)...)
	return result
}

func clampGear(g int) int {
	if g < 0 {
		return 0
	}
	if g > 8 {
		return 8
	}
	return g
}

func containsBeforeOrAt(retiredAt map[string]int, code string, i int) bool {
	ra, ok := retiredAt[code]
	return ok && i >= ra
}

// orderActive picks the ordering mode for this frame — grid order before
// the lights go out, official classification on the final frame, race
// progress otherwise — and applies the optional lap-anchor override.
func orderActive(active []string, timelines map[string]DriverTimeline, t float64, idx, total int, in BuildFramesInput) []string {
	order := make([]string, len(active))
	copy(order, active)

	switch {
	case t < in.GridLockSeconds && len(in.Grid) > 0:
		sort.SliceStable(order, func(a, b int) bool {
			ga, gb := in.Grid[order[a]], in.Grid[order[b]]
			if ga == 0 {
				ga = 1 << 30
			}
			if gb == 0 {
				gb = 1 << 30
			}
			if ga != gb {
				return ga < gb
			}
			return timelines[order[a]].RaceProgress[idx] > timelines[order[b]].RaceProgress[idx]
		})
	case idx == total-1 && in.Official.Available:
		rank := make(map[string]int, len(in.Official.Order))
		for i, code := range in.Official.Order {
			rank[code] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			ra, oka := rank[order[a]]
			rb, okb := rank[order[b]]
			if oka && okb {
				return ra < rb
			}
			if oka != okb {
				return oka
			}
			return timelines[order[a]].RaceProgress[idx] > timelines[order[b]].RaceProgress[idx]
		})
	default:
		sort.SliceStable(order, func(a, b int) bool {
			pa, pb := timelines[order[a]].RaceProgress[idx], timelines[order[b]].RaceProgress[idx]
			if pa != pb {
				return pa > pb
			}
			return order[a] < order[b]
		})
	}

	return applyLapAnchors(order, timelines, idx)
}

// applyHysteresis reverts adjacent swaps below the threshold distance,
// unless hysteresis is disabled for this instant (safety car / VSC /
// red flag).
func applyHysteresis(order, prev []string, timelines map[string]DriverTimeline, idx int, thresholdMeters float64, statuses []types.TrackStatusInterval, t float64) []string {
	if types.HysteresisSuppressed(statuses, t) {
		return order
	}

	prevIndex := make(map[string]int, len(prev))
	for i, code := range prev {
		prevIndex[code] = i
	}

	out := make([]string, len(order))
	copy(out, order)

	for i := 0; i < len(out)-1; i++ {
		a, b := out[i], out[i+1]
		pa, okA := prevIndex[a]
		pb, okB := prevIndex[b]
		if !okA || !okB {
			continue
		}
		if pa < pb {
			continue // already in previous relative order
		}
		diff := timelines[a].RaceProgress[idx] - timelines[b].RaceProgress[idx]
		if diff < 0 {
			diff = -diff
		}
		if diff < thresholdMeters {
			out[i], out[i+1] = out[i+1], out[i]
		}
	}
	return out
}

// detectRetirements returns, per driver code, the first frame index at
// which the driver is considered retired: speed held at ~0 for at least
// RetirementWindowSeconds.
func detectRetirements(timelines map[string]DriverTimeline, codes []string, deltaSeconds float64) map[string]int {
	windowFrames := 1
	if deltaSeconds > 0 {
		windowFrames = int(RetirementWindowSeconds/deltaSeconds + 0.5)
	}
	if windowFrames < 1 {
		windowFrames = 1
	}

	out := make(map[string]int)
	for _, code := range codes {
		dtl := timelines[code]
		run := 0
		for i, speed := range dtl.Speed {
			if speed <= retirementSpeedEpsilon {
				run++
				if run >= windowFrames {
					out[code] = i - windowFrames + 1
					break
				}
			} else {
				run = 0
			}
		}
	}
	return out
}

// checkDistMonotonic emits replayerr.InvariantWarning (not a failure) if
// any driver's Dist regresses by more than ε between consecutive
// frames.
func checkDistMonotonic(timelines map[string]DriverTimeline, codes []string) []error {
	const epsilon = 1e-3
	var warnings []error
	for _, code := range codes {
		dtl := timelines[code]
		for i := 1; i < len(dtl.Dist); i++ {
			if dtl.Dist[i] < dtl.Dist[i-1]-epsilon {
				warnings = append(warnings, &replayerr.InvariantWarning{
					Detail: "driver " + code + " dist regressed at frame index " + strconv.Itoa(i),
				})
			}
		}
	}
	return warnings
}
