package localsource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/f1telemetry/replay-engine/internal/types"
)

func TestLoadInput_DecodesFixtureFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	key := types.SessionKey{Year: 2024, Round: 6, SessionType: "R"}

	payload := map[string]any{
		"Year": 2024, "Round": 6, "SessionType": "R",
		"Drivers": []map[string]any{{
			"Entrant": map[string]any{"Code": "VER"},
			"Laps": []map[string]any{{
				"LapNumber": 1,
				"Points": []map[string]any{
					{"SessionTime": 0, "X": 0, "Y": 0, "Speed": 200, "LapDistance": 0, "LapNumber": 1},
				},
			}},
		}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, key.String()+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	src := New(dir)
	in, err := src.LoadInput(context.Background(), key)
	if err != nil {
		t.Fatalf("LoadInput() error = %v", err)
	}
	if in.Year != 2024 || len(in.Drivers) != 1 || in.Drivers[0].Entrant.Code != "VER" {
		t.Errorf("LoadInput() = %+v, want decoded VER fixture", in)
	}
}

func TestLoadInput_MissingFileReturnsError(t *testing.T) {
	t.Parallel()
	src := New(t.TempDir())
	_, err := src.LoadInput(context.Background(), types.SessionKey{Year: 2099, Round: 1, SessionType: "R"})
	if err == nil {
		t.Fatal("expected an error for a missing fixture file")
	}
}

func TestLoadQualifyingInput_DecodesSegmentMap(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	key := types.SessionKey{Year: 2024, Round: 6, SessionType: "Q"}

	payload := map[string]any{
		"Q1": map[string]any{
			"Drivers": map[string]any{
				"VER": map[string]any{
					"Entrant":   map[string]any{"Code": "VER"},
					"Lap":       map[string]any{"LapNumber": 1, "Points": []map[string]any{}},
					"LapTimeMS": 78000,
				},
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, key.String()+".q.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	src := New(dir)
	segments, err := src.LoadQualifyingInput(context.Background(), key)
	if err != nil {
		t.Fatalf("LoadQualifyingInput() error = %v", err)
	}
	seg, ok := segments["Q1"]
	if !ok {
		t.Fatal("segment Q1 missing")
	}
	if seg.Drivers["VER"].LapTimeMS != 78000 {
		t.Errorf("LapTimeMS = %d, want 78000", seg.Drivers["VER"].LapTimeMS)
	}
}
