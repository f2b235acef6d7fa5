// codec.go — Binary frame wire codec. Each encoded message is a 4-byte
// big-endian length prefix (stdlib encoding/binary) followed by a
// msgpack-encoded frame (vmihailenco/msgpack/v5), so a framed transport
// in front of the raw websocket can resynchronize after a partial read.
// The on-disk cache (internal/cache) does not use this framing.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/f1telemetry/replay-engine/internal/types"
)

const lengthPrefixBytes = 4

// wireDriverSample mirrors types.DriverSample but is the defensive
// encode target: any non-finite float (NaN/Inf, which can slip in from
// upstream telemetry gaps) is coerced to 0 before it ever reaches the
// wire.
type wireDriverSample struct {
	X            float64           `msgpack:"x"`
	Y            float64           `msgpack:"y"`
	Dist         float64           `msgpack:"dist"`
	RelDist      float64           `msgpack:"rel_dist"`
	RaceProgress float64           `msgpack:"race_progress"`
	Lap          int               `msgpack:"lap"`
	Tyre         string            `msgpack:"tyre"`
	Speed        float64           `msgpack:"speed"`
	Gear         int               `msgpack:"gear"`
	DRS          int               `msgpack:"drs"`
	Throttle     float64           `msgpack:"throttle"`
	Brake        float64           `msgpack:"brake"`
	RPM          float64           `msgpack:"rpm"`
	Position     int               `msgpack:"position"`
	Status       string            `msgpack:"status"`
	LapTimeMS    *int64            `msgpack:"lap_time_ms,omitempty"`
	Sector1      *float64          `msgpack:"sector1,omitempty"`
	Sector2      *float64          `msgpack:"sector2,omitempty"`
	Sector3      *float64          `msgpack:"sector3,omitempty"`
}

type wireFrame struct {
	Index     int                         `msgpack:"index"`
	T         float64                     `msgpack:"t"`
	LeaderLap int                         `msgpack:"leader_lap"`
	Drivers   map[string]wireDriverSample `msgpack:"drivers"`
	Weather   *types.WeatherSample        `msgpack:"weather,omitempty"`
}

func safeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func toWire(f types.Frame) wireFrame {
	drivers := make(map[string]wireDriverSample, len(f.Drivers))
	for code, d := range f.Drivers {
		drivers[code] = wireDriverSample{
			X: safeFloat(d.X), Y: safeFloat(d.Y),
			Dist: safeFloat(d.Dist), RelDist: safeFloat(d.RelDist), RaceProgress: safeFloat(d.RaceProgress),
			Lap: d.Lap, Tyre: d.Tyre, Speed: safeFloat(d.Speed), Gear: d.Gear, DRS: d.DRS,
			Throttle: safeFloat(d.Throttle), Brake: safeFloat(d.Brake), RPM: safeFloat(d.RPM),
			Position: d.Position, Status: string(d.Status),
			LapTimeMS: d.LapTimeMS, Sector1: d.Sector1, Sector2: d.Sector2, Sector3: d.Sector3,
		}
	}
	return wireFrame{Index: f.Index, T: f.T, LeaderLap: f.LeaderLap, Drivers: drivers, Weather: f.Weather}
}

func fromWire(w wireFrame) types.Frame {
	drivers := make(map[string]*types.DriverSample, len(w.Drivers))
	for code, d := range w.Drivers {
		drivers[code] = &types.DriverSample{
			X: d.X, Y: d.Y, Dist: d.Dist, RelDist: d.RelDist, RaceProgress: d.RaceProgress,
			Lap: d.Lap, Tyre: d.Tyre, Speed: d.Speed, Gear: d.Gear, DRS: d.DRS,
			Throttle: d.Throttle, Brake: d.Brake, RPM: d.RPM,
			Position: d.Position, Status: types.DriverStatus(d.Status),
			LapTimeMS: d.LapTimeMS, Sector1: d.Sector1, Sector2: d.Sector2, Sector3: d.Sector3,
		}
	}
	return types.Frame{Index: w.Index, T: w.T, LeaderLap: w.LeaderLap, Drivers: drivers, Weather: w.Weather}
}

// EncodeFrame produces the length-prefixed wire message for one frame.
func EncodeFrame(f types.Frame) ([]byte, error) {
	packed, err := msgpack.Marshal(toWire(f))
	if err != nil {
		return nil, fmt.Errorf("codec: marshal frame: %w", err)
	}

	out := make([]byte, lengthPrefixBytes+len(packed))
	binary.BigEndian.PutUint32(out, uint32(len(packed)))
	copy(out[lengthPrefixBytes:], packed)
	return out, nil
}

// DecodeFrame reads one length-prefixed wire message, returning the
// decoded Frame and the number of bytes consumed. Unknown fields in the
// payload are ignored by msgpack's struct decoding, keeping decode
// forward-compatible with newer encoders.
func DecodeFrame(buf []byte) (types.Frame, int, error) {
	if len(buf) < lengthPrefixBytes {
		return types.Frame{}, 0, fmt.Errorf("codec: buffer too short for length prefix")
	}
	n := int(binary.BigEndian.Uint32(buf))
	total := lengthPrefixBytes + n
	if len(buf) < total {
		return types.Frame{}, 0, fmt.Errorf("codec: buffer too short: need %d, have %d", total, len(buf))
	}

	var w wireFrame
	if err := msgpack.Unmarshal(buf[lengthPrefixBytes:total], &w); err != nil {
		return types.Frame{}, 0, fmt.Errorf("codec: unmarshal frame: %w", err)
	}
	return fromWire(w), total, nil
}

// PreEncodeAll encodes every frame once, up front, so the gateway's
// playback loop only ever indexes into pre-built byte slices. This
// trades memory for CPU and is only worthwhile for sessions under a
// bounded frame count; callers above that should stream encoding
// per-tick instead.
func PreEncodeAll(frames []types.Frame) ([][]byte, error) {
	out := make([][]byte, len(frames))
	for i, f := range frames {
		b, err := EncodeFrame(f)
		if err != nil {
			return nil, fmt.Errorf("codec: frame %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}
