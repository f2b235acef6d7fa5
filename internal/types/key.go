// key.go — SessionKey: the (year, round, session_type) identity for a session.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// SessionKey identifies a session by its (year, round, session_type) tuple.
// It is the Registry's map key and renders to the gateway's path segment
// convention, e.g. "2024_6_R".
type SessionKey struct {
	Year        int    `json:"year"`
	Round       int    `json:"round"`
	SessionType string `json:"session_type"`
}

// String renders the key the way the gateway's /ws/replay/{session_id} path expects.
func (k SessionKey) String() string {
	return fmt.Sprintf("%d_%d_%s", k.Year, k.Round, k.SessionType)
}

// ParseSessionKey parses the "{year}_{round}_{session_type}" form String
// produces, as used by the gateway's /ws/replay/{session_id} path and the
// HTTP API's /sessions/{session_id} path.
func ParseSessionKey(s string) (SessionKey, error) {
	parts := strings.SplitN(s, "_", 3)
	if len(parts) != 3 {
		return SessionKey{}, fmt.Errorf("session key %q: want \"year_round_session_type\"", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return SessionKey{}, fmt.Errorf("session key %q: bad year: %w", s, err)
	}
	round, err := strconv.Atoi(parts[1])
	if err != nil {
		return SessionKey{}, fmt.Errorf("session key %q: bad round: %w", s, err)
	}
	if parts[2] == "" {
		return SessionKey{}, fmt.Errorf("session key %q: empty session_type", s)
	}
	return SessionKey{Year: year, Round: round, SessionType: parts[2]}, nil
}

// IsQualifying reports whether this session's pipeline output is the
// segment-keyed qualifying structure rather than a global frame sequence.
func (k SessionKey) IsQualifying() bool {
	switch k.SessionType {
	case "Q", "SQ":
		return true
	default:
		return false
	}
}
