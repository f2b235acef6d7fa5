package gateway

import (
	"errors"
	"sync"
	"time"
)

// fakeConn is a minimal in-memory conn for driving the handler's state
// machine without a real network socket, grounded on the teacher's
// preference for hand-rolled fakes over a mocking framework
// (cmd/dev-console/multi_client_test.go uses the same style).
type fakeConn struct {
	mu sync.Mutex

	jsonOut   []any
	binaryOut [][]byte

	toRead  []controlMsg
	readErr error // returned once toRead is exhausted; nil defaults to timeoutErr

	closed bool
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jsonOut = append(c.jsonOut, v)
	return nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.binaryOut = append(c.binaryOut, cp)
	return nil
}

func (c *fakeConn) ReadJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toRead) == 0 {
		if c.readErr != nil {
			return c.readErr
		}
		return timeoutErr{}
	}
	ctrl, ok := v.(*controlMsg)
	if !ok {
		return errors.New("fakeConn: unexpected ReadJSON target type")
	}
	*ctrl = c.toRead[0]
	c.toRead = c.toRead[1:]
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.jsonOut))
	copy(out, c.jsonOut)
	return out
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.binaryOut))
	copy(out, c.binaryOut)
	return out
}
