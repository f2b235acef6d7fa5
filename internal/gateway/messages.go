// messages.go — Wire shapes for the gateway's JSON control channel.
// Binary frame payloads are handled entirely by internal/codec; every
// struct here is JSON, never msgpack.
package gateway

import "github.com/f1telemetry/replay-engine/internal/telemetry"

type loadingProgressMsg struct {
	Type           string  `json:"type"`
	Progress       int     `json:"progress"`
	Message        string  `json:"message"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

type loadingCompleteMsg struct {
	Type            string  `json:"type"`
	Frames          int     `json:"frames"`
	LoadTimeSeconds float64 `json:"load_time_seconds"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

type loadingErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type qualifyingSegmentsMsg struct {
	Type     string                      `json:"type"`
	Segments *telemetry.QualifyingResult `json:"segments"`
}

// controlMsg is the client->server shape for play/pause/seek. Fields not
// relevant to Action are simply left at their zero value by the sender;
// Speed and Frame are read only for the actions that use them.
type controlMsg struct {
	Action string  `json:"action"`
	Speed  float64 `json:"speed"`
	Frame  int     `json:"frame"`
}
