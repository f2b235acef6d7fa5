// httpapi.go — The two HTTP endpoints: POST /sessions schedules a load
// and returns immediately; GET /sessions/{id} reports the session's
// current state and, once READY, its metadata for discovery.
//
// Grounded on the teacher's handler style (cmd/dev-console/handler.go's
// jsonResponse helper, MaxBytesReader-bounded decode) adapted to plain
// net/http.ServeMux routing.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/f1telemetry/replay-engine/internal/cache"
	"github.com/f1telemetry/replay-engine/internal/config"
	"github.com/f1telemetry/replay-engine/internal/metrics"
	"github.com/f1telemetry/replay-engine/internal/session"
	"github.com/f1telemetry/replay-engine/internal/telemetry"
	"github.com/f1telemetry/replay-engine/internal/types"
)

const maxBodyBytes = 1 << 20 // 1 MiB; a session-creation request is a handful of fields

// Source loads raw input for a session key, e.g. from upstream FastF1-style
// feeds. It is supplied by the caller so httpapi stays ignorant of where
// raw telemetry actually comes from.
type Source interface {
	LoadInput(ctx context.Context, key types.SessionKey) (*telemetry.LoadInput, error)
	LoadQualifyingInput(ctx context.Context, key types.SessionKey) (map[string]telemetry.QualifyingSegmentInput, error)
}

// API wires the session registry, cache, and pipeline together behind
// the two HTTP endpoints.
type API struct {
	Registry *session.Registry
	Cache    *cache.Store
	Source   Source
	Config   config.Config
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}

// New constructs an API with the given collaborators.
func New(registry *session.Registry, store *cache.Store, src Source, cfg config.Config, m *metrics.Registry, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{Registry: registry, Cache: store, Source: src, Config: cfg, Metrics: m, Logger: logger}
}

// Register mounts both endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sessions", a.handleCreate)
	mux.HandleFunc("/sessions/", a.handleGet)
}

type createRequest struct {
	Year        int    `json:"year"`
	Round       int    `json:"round"`
	SessionType string `json:"session_type"`
	Refresh     bool   `json:"refresh,omitempty"`
}

type createResponse struct {
	SessionID string `json:"session_id"`
}

// handleCreate implements POST /sessions. The response never carries a
// loading-status field — loading state is communicated exclusively
// over the /ws/replay channel.
func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.SessionType == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "session_type is required"})
		return
	}

	key := types.SessionKey{Year: body.Year, Round: body.Round, SessionType: body.SessionType}
	if body.Refresh {
		a.Registry.Evict(key)
	}

	sess, created := a.Registry.GetOrCreate(key)
	if created {
		// The load outlives this request: net/http cancels r.Context()
		// as soon as the handler returns.
		a.scheduleLoad(context.WithoutCancel(r.Context()), sess, key)
	}

	jsonResponse(w, http.StatusOK, createResponse{SessionID: key.String()})
}

func (a *API) scheduleLoad(ctx context.Context, sess *session.Session, key types.SessionKey) {
	countFailure := func(err error) error {
		if a.Metrics != nil {
			a.Metrics.SessionsTotal.WithLabelValues(string(types.StateError)).Inc()
		}
		return err
	}
	observeDuration := func(start time.Time) {
		if a.Metrics != nil {
			a.Metrics.PipelineDuration.WithLabelValues(key.String()).Observe(time.Since(start).Seconds())
		}
	}

	if key.IsQualifying() {
		sess.ScheduleQualifyingLoad(ctx, func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.QualifyingResult, error) {
			if a.Cache != nil {
				if entry, ok, err := a.Cache.Load(key); err == nil && ok && entry.Qualifying != nil {
					notify(100, "Loaded from cache")
					return entry.Qualifying, nil
				}
			}
			segments, err := a.Source.LoadQualifyingInput(ctx, key)
			if err != nil {
				return nil, countFailure(err)
			}
			start := time.Now()
			result, err := telemetry.BuildQualifyingSegments(ctx, a.Config.Workers(), a.Config.FrameDeltaSeconds(), segments)
			observeDuration(start)
			if err != nil {
				return nil, countFailure(err)
			}
			if a.Cache != nil {
				a.Cache.Store(key, &cache.Entry{Qualifying: result})
			}
			if a.Metrics != nil {
				a.Metrics.SessionsTotal.WithLabelValues(string(types.StateReady)).Inc()
			}
			return result, nil
		})
		return
	}

	sess.ScheduleLoad(ctx, func(ctx context.Context, notify telemetry.ProgressFunc) (*telemetry.Result, error) {
		if a.Cache != nil {
			if entry, ok, err := a.Cache.Load(key); err == nil && ok {
				notify(100, "Loaded from cache")
				return &telemetry.Result{Frames: entry.Frames, Metadata: entry.Metadata, TrackStatuses: entry.TrackStatuses}, nil
			}
		}
		in, err := a.Source.LoadInput(ctx, key)
		if err != nil {
			return nil, countFailure(err)
		}
		start := time.Now()
		result, err := telemetry.RunPipeline(ctx, a.Config.Workers(), a.Config.FrameDeltaSeconds(), a.Config.HysteresisMeters, a.Config.GridLockSeconds, *in, notify)
		observeDuration(start)
		if err != nil {
			return nil, countFailure(err)
		}
		if a.Cache != nil {
			a.Cache.Store(key, &cache.Entry{Frames: result.Frames, Metadata: result.Metadata, TrackStatuses: result.TrackStatuses})
		}
		if a.Metrics != nil {
			a.Metrics.SessionsTotal.WithLabelValues(string(types.StateReady)).Inc()
		}
		return result, nil
	})
}

type sessionResponse struct {
	SessionID string                 `json:"session_id"`
	State     types.LoadingState     `json:"state"`
	Metadata  *types.SessionMetadata `json:"metadata,omitempty"`
}

// handleGet implements GET /sessions/{id}: the session's current state,
// plus its metadata once READY (omitted before that).
func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/sessions/")
	key, err := types.ParseSessionKey(raw)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sess, ok := a.Registry.Get(key)
	if !ok {
		jsonResponse(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	resp := sessionResponse{SessionID: key.String(), State: sess.State()}
	if _, metadata, _, ok := sess.Snapshot(); ok {
		resp.Metadata = &metadata
	}
	jsonResponse(w, http.StatusOK, resp)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
