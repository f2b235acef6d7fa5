// session.go — Session: the per-key state machine (INIT -> LOADING ->
// READY|ERROR), its progress-event bus, and the exactly-once pipeline
// dispatch.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/f1telemetry/replay-engine/internal/telemetry"
	"github.com/f1telemetry/replay-engine/internal/types"
	"github.com/f1telemetry/replay-engine/internal/util"
)

// Loader runs the telemetry pipeline (or serves it from cache) for one
// session, forwarding progress through notify. It is supplied by the
// caller so Session itself stays ignorant of cache/pipeline wiring.
type Loader func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.Result, error)

// Session is a single session's lifecycle: its loading state, its
// progress subscribers, and (once READY) its immutable frame/metadata
// payload. All exported methods are safe for concurrent use.
type Session struct {
	Key types.SessionKey

	mu        sync.RWMutex
	state     types.LoadingState
	createdAt time.Time

	frames        []types.Frame
	metadata      types.SessionMetadata
	trackStatuses []types.TrackStatusInterval
	qualifying    *telemetry.QualifyingResult
	warnings      []error

	loadErr         error
	loadTimeSeconds float64

	once sync.Once

	// progressCh is the bridge channel from the pipeline side (any
	// goroutine notify() is invoked from) to dispatchProgress, the
	// session's dedicated dispatch goroutine. Subscriber dispatch happens
	// only on that goroutine, never on the caller of notify() directly.
	progressCh chan types.ProgressEvent

	subMu     sync.Mutex
	subs      map[uint64]chan types.ProgressEvent
	nextSub   uint64
	lastEvent *types.ProgressEvent
}

// NewSession constructs a session in state INIT and starts its
// dedicated progress-dispatch goroutine.
func NewSession(key types.SessionKey) *Session {
	s := &Session{
		Key:        key,
		state:      types.StateInit,
		createdAt:  time.Now(),
		progressCh: make(chan types.ProgressEvent, 256),
		subs:       make(map[uint64]chan types.ProgressEvent),
	}
	util.SafeGo(s.dispatchProgress)
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() types.LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the session's READY payload. ok is false before READY.
func (s *Session) Snapshot() (frames []types.Frame, metadata types.SessionMetadata, trackStatuses []types.TrackStatusInterval, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != types.StateReady {
		return nil, types.SessionMetadata{}, nil, false
	}
	return s.frames, s.metadata, s.trackStatuses, true
}

// Qualifying returns the segment-keyed qualifying payload, when this
// session is a qualifying session and is READY.
func (s *Session) Qualifying() (*telemetry.QualifyingResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != types.StateReady || s.qualifying == nil {
		return nil, false
	}
	return s.qualifying, true
}

// LoadError returns the failure reason once state is ERROR.
func (s *Session) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Warnings returns any non-fatal invariant warnings raised during load.
func (s *Session) Warnings() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warnings
}

// ScheduleLoad dispatches the pipeline exactly once for this session's
// lifetime, regardless of how many callers invoke it concurrently. It
// runs on its own panic-recovering goroutine (the CPU-pool side of the
// two-scheduler bridge) and returns immediately.
func (s *Session) ScheduleLoad(ctx context.Context, load Loader) {
	s.once.Do(func() {
		s.setState(types.StateLoading)
		s.EmitProgress(types.ProgressEvent{State: types.StateLoading, Progress: 0, Message: "Queued"})

		util.SafeGo(func() {
			start := time.Now()
			result, err := load(ctx, func(progress int, message string) {
				s.EmitProgress(types.ProgressEvent{
					State: types.StateLoading, Progress: progress, Message: message,
					ElapsedSeconds: time.Since(start).Seconds(),
				})
			})
			elapsed := time.Since(start).Seconds()

			if err != nil {
				s.mu.Lock()
				s.state = types.StateError
				s.loadErr = err
				s.loadTimeSeconds = elapsed
				s.mu.Unlock()
				s.EmitProgress(types.ProgressEvent{State: types.StateError, Progress: 100, Message: err.Error(), ElapsedSeconds: elapsed})
				return
			}

			s.mu.Lock()
			s.frames = result.Frames
			s.metadata = result.Metadata
			s.trackStatuses = result.TrackStatuses
			s.warnings = result.Warnings
			s.state = types.StateReady
			s.loadTimeSeconds = elapsed
			s.mu.Unlock()
			s.EmitProgress(types.ProgressEvent{State: types.StateReady, Progress: 100, Message: "Ready", ElapsedSeconds: elapsed})
		})
	})
}

// ScheduleQualifyingLoad is the qualifying-session counterpart to
// ScheduleLoad: no frame sequence, a segment-keyed QualifyingResult
// instead.
func (s *Session) ScheduleQualifyingLoad(ctx context.Context, load func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.QualifyingResult, error)) {
	s.once.Do(func() {
		s.setState(types.StateLoading)
		s.EmitProgress(types.ProgressEvent{State: types.StateLoading, Progress: 0, Message: "Queued"})

		util.SafeGo(func() {
			start := time.Now()
			result, err := load(ctx, func(progress int, message string) {
				s.EmitProgress(types.ProgressEvent{
					State: types.StateLoading, Progress: progress, Message: message,
					ElapsedSeconds: time.Since(start).Seconds(),
				})
			})
			elapsed := time.Since(start).Seconds()

			if err != nil {
				s.mu.Lock()
				s.state = types.StateError
				s.loadErr = err
				s.loadTimeSeconds = elapsed
				s.mu.Unlock()
				s.EmitProgress(types.ProgressEvent{State: types.StateError, Progress: 100, Message: err.Error(), ElapsedSeconds: elapsed})
				return
			}

			s.mu.Lock()
			s.qualifying = result
			s.state = types.StateReady
			s.loadTimeSeconds = elapsed
			s.mu.Unlock()
			s.EmitProgress(types.ProgressEvent{State: types.StateReady, Progress: 100, Message: "Ready", ElapsedSeconds: elapsed})
		})
	})
}

func (s *Session) setState(st types.LoadingState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RegisterProgressSubscriber registers a new progress listener and
// returns its handle plus a channel that receives a late-joiner
// catch-up event immediately (if any progress has been emitted yet),
// followed by subsequent EmitProgress events. The channel is buffered
// (16 events) so a slow subscriber cannot stall the emitter; while its
// buffer is full, dispatchProgress drops events for that subscriber.
func (s *Session) RegisterProgressSubscriber() (uint64, <-chan types.ProgressEvent) {
	ch := make(chan types.ProgressEvent, 16)

	s.subMu.Lock()
	handle := s.nextSub
	s.nextSub++
	s.subs[handle] = ch
	last := s.lastEvent
	s.subMu.Unlock()

	// Explicit-null-check: lastEvent may legitimately carry Progress==0,
	// which must not be mistaken for "no event yet".
	if last != nil {
		ch <- *last
	}

	return handle, ch
}

// UnregisterProgressSubscriber removes a subscriber and closes its
// channel. Safe to call more than once for the same handle.
func (s *Session) UnregisterProgressSubscriber(handle uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[handle]; ok {
		delete(s.subs, handle)
		close(ch)
	}
}

// EmitProgress records event as the latest (so a late joiner always
// catches up to the truth immediately) and queues it on the bridge
// channel for fan-out. Fan-out to existing subscribers happens only on
// dispatchProgress's goroutine, never on the caller's — so it is safe
// to call EmitProgress from the pipeline's own goroutine without
// risking a subscriber dispatch racing an errgroup worker.
func (s *Session) EmitProgress(event types.ProgressEvent) {
	s.subMu.Lock()
	e := event
	s.lastEvent = &e
	s.subMu.Unlock()

	s.progressCh <- event
}

// dispatchProgress is the sole reader of progressCh and the sole writer
// of events into subscriber channels. It runs for the Session's whole
// lifetime, keeping all subscriber fan-out on one goroutine.
func (s *Session) dispatchProgress() {
	for event := range s.progressCh {
		s.subMu.Lock()
		for _, ch := range s.subs {
			select {
			case ch <- event:
			default:
			}
		}
		s.subMu.Unlock()
	}
}

// LoadTimeSeconds returns how long the load took (or has been running).
func (s *Session) LoadTimeSeconds() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadTimeSeconds
}

// CreatedAt returns when this Session was constructed.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
