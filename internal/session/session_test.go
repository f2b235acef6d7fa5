// session_test.go — Tests for the Session state machine and progress bus.
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/f1telemetry/replay-engine/internal/telemetry"
	"github.com/f1telemetry/replay-engine/internal/types"
)

func key() types.SessionKey {
	return types.SessionKey{Year: 2024, Round: 6, SessionType: "R"}
}

func TestSession_StartsInInitState(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	if s.State() != types.StateInit {
		t.Errorf("State() = %v, want StateInit", s.State())
	}
}

func TestScheduleLoad_TransitionsToReadyOnSuccess(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	done := make(chan struct{})

	s.ScheduleLoad(context.Background(), func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.Result, error) {
		notify(50, "halfway")
		defer close(done)
		return &telemetry.Result{Frames: []types.Frame{{Index: 0}}}, nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("load did not complete in time")
	}
	waitForState(t, s, types.StateReady)

	frames, _, _, ok := s.Snapshot()
	if !ok {
		t.Fatal("Snapshot() ok = false after READY")
	}
	if len(frames) != 1 {
		t.Errorf("len(frames) = %d, want 1", len(frames))
	}
}

func TestScheduleLoad_TransitionsToErrorOnFailure(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	wantErr := errors.New("boom")

	s.ScheduleLoad(context.Background(), func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.Result, error) {
		return nil, wantErr
	})

	waitForState(t, s, types.StateError)
	if s.LoadError() == nil {
		t.Error("LoadError() = nil, want non-nil")
	}
}

func TestScheduleLoad_RunsExactlyOnce(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	calls := make(chan struct{}, 4)

	loader := func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.Result, error) {
		calls <- struct{}{}
		return &telemetry.Result{}, nil
	}

	for i := 0; i < 4; i++ {
		s.ScheduleLoad(context.Background(), loader)
	}
	waitForState(t, s, types.StateReady)

	if len(calls) != 1 {
		t.Errorf("loader invoked %d times, want 1", len(calls))
	}
}

func TestRegisterProgressSubscriber_LateJoinerGetsCatchUpEvent(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	s.EmitProgress(types.ProgressEvent{State: types.StateLoading, Progress: 0, Message: "starting"})

	_, ch := s.RegisterProgressSubscriber()
	select {
	case ev := <-ch:
		if ev.Progress != 0 || ev.Message != "starting" {
			t.Errorf("catch-up event = %+v, want progress=0 starting", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive catch-up event")
	}
}

func TestRegisterProgressSubscriber_ZeroProgressIsNotTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	s.EmitProgress(types.ProgressEvent{State: types.StateLoading, Progress: 0, Message: "zero but present"})

	_, ch := s.RegisterProgressSubscriber()
	select {
	case ev := <-ch:
		if ev.Message != "zero but present" {
			t.Errorf("expected catch-up with progress=0 event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("progress=0 catch-up event was dropped")
	}
}

func TestUnregisterProgressSubscriber_ClosesChannel(t *testing.T) {
	t.Parallel()
	s := NewSession(key())
	handle, ch := s.RegisterProgressSubscriber()
	s.UnregisterProgressSubscriber(handle)

	_, open := <-ch
	if open {
		t.Error("channel still open after unregister")
	}
}

func TestRegistry_GetOrCreate_ReturnsSameSessionForSameKey(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	s1, created1 := r.GetOrCreate(key())
	s2, created2 := r.GetOrCreate(key())

	if !created1 {
		t.Error("first GetOrCreate() created = false, want true")
	}
	if created2 {
		t.Error("second GetOrCreate() created = true, want false")
	}
	if s1 != s2 {
		t.Error("GetOrCreate() returned different sessions for the same key")
	}
}

func waitForState(t *testing.T, s *Session, want types.LoadingState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v after waiting", s.State(), want)
}
