// localsource.go — A filesystem-backed httpapi.Source. Live ingestion
// from an upstream provider is out of scope; this reads pre-fetched
// session payloads from a local directory instead of calling out to
// anything.
//
// Layout: {dir}/{session_key}.json for race/practice sessions,
// decoded straight into telemetry.LoadInput; {dir}/{session_key}.q.json
// for qualifying sessions, decoded into the segment-keyed input map
// BuildQualifyingSegments expects. Grounded on the teacher's plain
// encoding/json decode idiom (cmd/dev-console/actions.go) — there is no
// wire protocol here to justify a third-party codec.
package localsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/f1telemetry/replay-engine/internal/telemetry"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// Source reads session payloads from a directory of JSON fixtures.
type Source struct {
	Dir string
}

// New constructs a Source rooted at dir.
func New(dir string) *Source {
	return &Source{Dir: dir}
}

func (s *Source) LoadInput(ctx context.Context, key types.SessionKey) (*telemetry.LoadInput, error) {
	path := filepath.Join(s.Dir, key.String()+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("localsource: %s: %w", key, err)
	}
	var in telemetry.LoadInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("localsource: %s: decode: %w", key, err)
	}
	return &in, nil
}

func (s *Source) LoadQualifyingInput(ctx context.Context, key types.SessionKey) (map[string]telemetry.QualifyingSegmentInput, error) {
	path := filepath.Join(s.Dir, key.String()+".q.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("localsource: %s: %w", key, err)
	}
	var segments map[string]telemetry.QualifyingSegmentInput
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("localsource: %s: decode: %w", key, err)
	}
	return segments, nil
}
