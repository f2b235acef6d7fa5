// replayerr.go — Error taxonomy for the replay engine.
//
// Each category is a distinct type so callers can classify with
// errors.As rather than string matching, while the message itself keeps
// the teacher's short snake_case tag-prefix convention (e.g.
// "load_failure: decode lap 12: ...") so log lines stay greppable.
package replayerr

import "fmt"

// NotFound — no such session id for a channel endpoint. Terminal for that
// channel; the client shows an error.
type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not_found: session %q does not exist", e.Key)
}

// LoadFailure — pipeline exception; the Session enters ERROR and all
// present and future subscribers receive a single loading_error event.
type LoadFailure struct {
	Reason string
	Cause  error
}

func (e *LoadFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load_failure: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("load_failure: %s", e.Reason)
}

func (e *LoadFailure) Unwrap() error { return e.Cause }

// LoadTimeout — server-side wall-clock bound exceeded. Same shape as
// LoadFailure with a timeout message.
type LoadTimeout struct {
	WaitedSeconds float64
}

func (e *LoadTimeout) Error() string {
	return fmt.Sprintf("load_timeout: no terminal state after %.0fs", e.WaitedSeconds)
}

// ProtocolError — malformed client control message. Logged; ignored; the
// channel remains open.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol_error: %s", e.Detail)
}

// TransportError — send/receive failure on the channel. Non-recoverable
// for that channel; cleanup scope runs.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport_error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// InvariantWarning — pipeline detects a data anomaly below the failure
// threshold. Logged only; does not alter state. Not returned as an error
// from any public API — callers collect these via telemetry.Result.Warnings.
type InvariantWarning struct {
	Detail string
}

func (e *InvariantWarning) Error() string {
	return fmt.Sprintf("invariant_warning: %s", e.Detail)
}
