// handler.go — The streaming gateway: one gorilla/websocket connection
// per client, multiplexing loading-progress events and binary frame
// playback over a single bidirectional channel.
//
// Grounded on the teacher's per-client connection lifecycle in
// cmd/dev-console/server_routes.go (register on entry, unregister on
// every exit path via defer) and its multi_client_test.go fan-out
// pattern, generalized here from SSE/polling clients to one websocket
// connection running the session's progress-subscriber + playback loop.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/f1telemetry/replay-engine/internal/metrics"
	"github.com/f1telemetry/replay-engine/internal/replayerr"
	"github.com/f1telemetry/replay-engine/internal/session"
	"github.com/f1telemetry/replay-engine/internal/telemetry"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// conn is the subset of *websocket.Conn the handler needs, narrowed so
// the playback state machine can be driven by a fake in tests.
type conn interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	ReadJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

const (
	// frameRateHz is the fixed timeline rate the pipeline resamples onto;
	// the playback loop's frame_cursor advances in units of this rate
	// regardless of the 60Hz tick cadence driving it.
	frameRateHz = 25.0

	tickRate          = 60.0
	tickPeriod        = time.Second / time.Duration(tickRate)
	controlPollPeriod = 10 * time.Millisecond

	defaultWaitPollInterval = 500 * time.Millisecond
	defaultWaitTimeout      = 300 * time.Second
)

// Handler upgrades incoming HTTP requests to websocket connections and
// drives each one through the session's loading + playback protocol.
type Handler struct {
	Registry *session.Registry
	Metrics  *metrics.Registry
	Logger   *slog.Logger

	Upgrader websocket.Upgrader

	// WaitPollInterval/WaitTimeout bound the loading wait loop (step 4 of
	// the handler state machine). Zero values fall back to the package
	// defaults (<=0.5s poll, 300s wall clock).
	WaitPollInterval time.Duration
	WaitTimeout      time.Duration
}

// New constructs a Handler with the default wait-loop timings.
func New(registry *session.Registry, m *metrics.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
		Upgrader: websocket.Upgrader{
			// Routing, auth, and CORS policy live outside this package;
			// this gateway is meant to sit behind a same-origin dev
			// proxy or an external edge that already enforces origin
			// policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		WaitPollInterval: defaultWaitPollInterval,
		WaitTimeout:      defaultWaitTimeout,
	}
}

// ServeHTTP implements the /ws/replay/{session_id} endpoint. The session
// id is the last path segment, per types.SessionKey.String()'s
// "{year}_{round}_{session_type}" convention.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/ws/replay/")
	key, err := types.ParseSessionKey(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("gateway upgrade failed", "session", raw, "error", err)
		return
	}
	h.HandleConn(r.Context(), c, key)
}

// HandleConn runs the full state machine for one already-upgraded
// connection: session lookup, progress subscription, the loading wait,
// and finally playback (or the qualifying hold). It always closes c
// before returning.
func (h *Handler) HandleConn(ctx context.Context, c conn, key types.SessionKey) {
	defer c.Close()

	if h.Metrics != nil {
		h.Metrics.GatewayConns.Inc()
		defer h.Metrics.GatewayConns.Dec()
	}

	sess, ok := h.Registry.Get(key)
	if !ok {
		notFound := &replayerr.NotFound{Key: key.String()}
		c.WriteJSON(loadingErrorMsg{Type: "loading_error", Message: "Session not found"})
		h.Logger.Info(notFound.Error())
		return
	}

	// Step 2: register before checking state, so no progress event
	// emitted between the check and the registration can be missed.
	handle, progressCh := sess.RegisterProgressSubscriber()
	defer sess.UnregisterProgressSubscriber(handle)

	if err := h.awaitReady(c, sess, progressCh); err != nil {
		return
	}

	if key.IsQualifying() {
		h.runQualifying(c, sess)
		return
	}
	h.runPlayback(ctx, c, sess)
}

// awaitReady implements steps 3-5 of the handler state machine: a
// late-joiner catch-up if the session is already terminal, otherwise a
// bounded wait during which subscriber events are forwarded verbatim as
// loading_progress messages. It returns nil once loading_complete has
// been written (the caller proceeds to playback), and a non-nil error
// when it has written loading_error or a write failed, in which case the
// caller should stop.
func (h *Handler) awaitReady(c conn, sess *session.Session, progressCh <-chan types.ProgressEvent) error {
	start := time.Now()

	// Late-joiner catch-up: a subscriber that registers after the
	// session is already READY sees exactly [loading_progress(100),
	// loading_complete] — never the full history of progress events the
	// original loader emitted. One that registers after ERROR sees only
	// loading_error.
	switch sess.State() {
	case types.StateReady:
		if err := c.WriteJSON(loadingProgressMsg{Type: "loading_progress", Progress: 100, Message: "Ready"}); err != nil {
			return err
		}
		return h.sendTerminal(c, sess, 0)
	case types.StateError:
		return h.sendTerminal(c, sess, 0)
	}

	waitTimeout := h.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	pollInterval := h.WaitPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultWaitPollInterval
	}

	deadline := time.Now().Add(waitTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case event, chOk := <-progressCh:
			if !chOk {
				return h.sendTerminal(c, sess, time.Since(start).Seconds())
			}
			if event.State == types.StateReady || event.State == types.StateError {
				return h.sendTerminal(c, sess, time.Since(start).Seconds())
			}
			if err := c.WriteJSON(loadingProgressMsg{
				Type: "loading_progress", Progress: event.Progress,
				Message: event.Message, ElapsedSeconds: event.ElapsedSeconds,
			}); err != nil {
				return err
			}

		case <-ticker.C:
			if state := sess.State(); state == types.StateReady || state == types.StateError {
				return h.sendTerminal(c, sess, time.Since(start).Seconds())
			}
			if time.Now().After(deadline) {
				timeoutErr := &replayerr.LoadTimeout{WaitedSeconds: time.Since(start).Seconds()}
				c.WriteJSON(loadingErrorMsg{Type: "loading_error", Message: timeoutErr.Error()})
				return errWaitTimeout
			}
		}
	}
}

// sendTerminal sends the loading_complete/loading_error message once the
// session has reached READY or ERROR. Returning nil means READY (the
// caller proceeds to playback); any non-nil error means the connection's
// work is done.
func (h *Handler) sendTerminal(c conn, sess *session.Session, elapsed float64) error {
	switch sess.State() {
	case types.StateReady:
		frames := 0
		if key := sess.Key; key.IsQualifying() {
			if q, ok := sess.Qualifying(); ok {
				frames = qualifyingFrameCount(q)
			}
		} else if fs, _, _, ok := sess.Snapshot(); ok {
			frames = len(fs)
		}
		if err := c.WriteJSON(loadingCompleteMsg{
			Type: "loading_complete", Frames: frames,
			LoadTimeSeconds: sess.LoadTimeSeconds(), ElapsedSeconds: elapsed,
		}); err != nil {
			return err
		}
		return nil
	case types.StateError:
		msg := "load failed"
		if err := sess.LoadError(); err != nil {
			msg = err.Error()
		}
		c.WriteJSON(loadingErrorMsg{Type: "loading_error", Message: msg})
		return errTerminalError
	default:
		return errNotReady
	}
}

// runQualifying sends one qualifying_segments message, then holds the
// connection open for client-initiated close only. Any control message
// is rejected as a ProtocolError and logged, never closing the channel.
func (h *Handler) runQualifying(c conn, sess *session.Session) {
	q, ok := sess.Qualifying()
	if !ok {
		c.WriteJSON(loadingErrorMsg{Type: "loading_error", Message: "qualifying result missing after ready"})
		return
	}
	if err := c.WriteJSON(qualifyingSegmentsMsg{Type: "qualifying_segments", Segments: q}); err != nil {
		return
	}

	for {
		var ctrl controlMsg
		if err := c.ReadJSON(&ctrl); err != nil {
			return
		}
		protoErr := &replayerr.ProtocolError{Detail: fmt.Sprintf("%q not valid on a qualifying session", ctrl.Action)}
		h.Logger.Info(protoErr.Error(), "action", ctrl.Action)
	}
}

// qualifyingFrameCount sums every segment/driver's own frame count,
// since a qualifying session has no single shared frame index.
func qualifyingFrameCount(q *telemetry.QualifyingResult) int {
	total := 0
	for _, seg := range q.Segments {
		for _, d := range seg.Drivers {
			total += len(d.Frames)
		}
	}
	return total
}

var (
	errWaitTimeout   = &waitError{"timed out"}
	errTerminalError = &waitError{"terminal error"}
	errNotReady      = &waitError{"not ready"}
)

type waitError struct{ msg string }

func (e *waitError) Error() string { return e.msg }
