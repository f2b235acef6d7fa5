// playback.go — The post-loading playback loop: a ~60Hz cooperative
// loop that polls for a client control message, then advances a frame
// cursor at the fixed 25Hz timeline rate scaled by the client's chosen
// speed, sending at most one binary frame per tick.
package gateway

import (
	"context"
	"math"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/f1telemetry/replay-engine/internal/codec"
	"github.com/f1telemetry/replay-engine/internal/session"
	"github.com/f1telemetry/replay-engine/internal/types"
)

// preEncodeBudget caps how many frames get pre-encoded up front
// (codec.PreEncodeAll's own guideline); sessions above it are encoded
// per-tick instead, trading a little CPU for bounded memory.
const preEncodeBudget = 50_000

// playbackState is the loop's local, single-goroutine-owned state.
// frame_cursor is a float so speed changes accumulate smoothly instead
// of snapping to whole frames.
type playbackState struct {
	frameCursor float64
	speed       float64
	isPlaying   bool
	lastSent    int
}

func (h *Handler) runPlayback(ctx context.Context, c conn, sess *session.Session) {
	frames, _, _, ok := sess.Snapshot()
	if !ok || len(frames) == 0 {
		return
	}

	var encoded [][]byte
	if len(frames) <= preEncodeBudget {
		enc, err := codec.PreEncodeAll(frames)
		if err == nil {
			encoded = enc
		}
	}

	st := playbackState{speed: 1.0, lastSent: -1}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		loopStart := time.Now()

		c.SetReadDeadline(loopStart.Add(controlPollPeriod))
		var ctrl controlMsg
		err := c.ReadJSON(&ctrl)
		switch {
		case err == nil:
			applyControl(&st, ctrl)
		case isTimeout(err):
			// no control message this tick; fall through to advance.
		default:
			return // disconnect or protocol-level transport error
		}

		if st.isPlaying {
			st.frameCursor += st.speed * (1.0 / tickRate) * frameRateHz
		}

		i := int(math.Floor(st.frameCursor))
		if i >= len(frames) {
			st.isPlaying = false
			st.frameCursor = float64(len(frames) - 1)
			i = len(frames) - 1
		}
		if i < 0 {
			i = 0
		}

		if i != st.lastSent {
			if err := h.sendFrame(c, frames, encoded, i); err != nil {
				return
			}
			st.lastSent = i
		}

		if sleep := tickPeriod - time.Since(loopStart); sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func (h *Handler) sendFrame(c conn, frames []types.Frame, encoded [][]byte, i int) error {
	var payload []byte
	if encoded != nil {
		payload = encoded[i]
	} else {
		enc, err := codec.EncodeFrame(frames[i])
		if err != nil {
			return nil // malformed single frame is dropped, not fatal to the connection
		}
		payload = enc
	}

	// Blocking send on a full transport buffer is acceptable cooperative
	// backpressure — the gateway keeps no frame buffer of its own beyond
	// the websocket library's write queue.
	if err := c.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return err
	}
	if h.Metrics != nil {
		h.Metrics.FramesSent.Inc()
	}
	return nil
}

// applyControl mutates st per one client control message. seek resets
// lastSent to -1 so the newly-sought frame is always (re)sent even if
// it equals the previously sent index.
func applyControl(st *playbackState, ctrl controlMsg) {
	switch ctrl.Action {
	case "play":
		st.isPlaying = true
		if ctrl.Speed != 0 {
			st.speed = ctrl.Speed
		}
	case "pause":
		st.isPlaying = false
	case "seek":
		st.frameCursor = float64(ctrl.Frame)
		st.lastSent = -1
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
