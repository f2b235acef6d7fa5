// codec_test.go — Tests for the binary frame wire codec.
package codec

import (
	"math"
	"testing"

	"github.com/f1telemetry/replay-engine/internal/types"
)

func sampleFrame() types.Frame {
	lapTime := int64(78234)
	return types.Frame{
		Index: 3, T: 0.12, LeaderLap: 2,
		Drivers: map[string]*types.DriverSample{
			"VER": {X: 100.5, Y: -20.25, Speed: 312.4, Lap: 2, Position: 1, Status: types.StatusRunning, LapTimeMS: &lapTime},
		},
	}
}

func TestEncodeDecodeFrame_RoundTrips(t *testing.T) {
	t.Parallel()
	f := sampleFrame()

	encoded, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}

	decoded, n, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if decoded.Index != f.Index || decoded.T != f.T {
		t.Errorf("decoded = %+v, want matching Index/T from %+v", decoded, f)
	}
	ver, ok := decoded.Drivers["VER"]
	if !ok {
		t.Fatal("decoded frame missing VER")
	}
	if ver.Speed != 312.4 {
		t.Errorf("VER.Speed = %v, want 312.4", ver.Speed)
	}
	if ver.LapTimeMS == nil || *ver.LapTimeMS != 78234 {
		t.Errorf("VER.LapTimeMS = %v, want 78234", ver.LapTimeMS)
	}
}

func TestEncodeFrame_CoercesNonFiniteToZero(t *testing.T) {
	t.Parallel()
	f := types.Frame{
		Drivers: map[string]*types.DriverSample{
			"HAM": {Speed: math.NaN(), X: math.Inf(1), Y: math.Inf(-1)},
		},
	}

	encoded, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	decoded, _, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}

	ham := decoded.Drivers["HAM"]
	if ham.Speed != 0 || ham.X != 0 || ham.Y != 0 {
		t.Errorf("non-finite fields = %+v, want all coerced to 0", ham)
	}
}

func TestDecodeFrame_TooShortBufferErrors(t *testing.T) {
	t.Parallel()
	if _, _, err := DecodeFrame([]byte{0, 0}); err == nil {
		t.Error("DecodeFrame() error = nil, want non-nil for truncated buffer")
	}
}

func TestPreEncodeAll_ProducesOneEntryPerFrame(t *testing.T) {
	t.Parallel()
	frames := []types.Frame{sampleFrame(), sampleFrame()}
	encoded, err := PreEncodeAll(frames)
	if err != nil {
		t.Fatalf("PreEncodeAll() error = %v", err)
	}
	if len(encoded) != 2 {
		t.Errorf("len(encoded) = %d, want 2", len(encoded))
	}
}
