// loading.go — LoadingState machine and ProgressEvent, shared between the
// session orchestrator (producer) and the streaming gateway (consumer).
package types

// LoadingState is a Session's lifecycle state. Transitions are one-way
// except that a client-initiated refresh destroys and recreates the
// Session (see session.Registry.GetOrCreate).
type LoadingState string

const (
	StateInit    LoadingState = "INIT"
	StateLoading LoadingState = "LOADING"
	StateReady   LoadingState = "READY"
	StateError   LoadingState = "ERROR"
)

// ProgressEvent is emitted by a Session and consumed by zero or more
// subscribers. session.Session.EmitProgress takes a whole event and
// stores it as given, so Progress 0 is delivered as 0; it does not merge
// a partial event with previously stored values.
type ProgressEvent struct {
	State          LoadingState `json:"state"`
	Progress       int          `json:"progress"`
	Message        string       `json:"message"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
}
