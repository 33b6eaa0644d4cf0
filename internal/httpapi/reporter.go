package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/agent"
	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/triage"
)

// Reporter is what the reporter's trigger API drives.
type Reporter interface {
	RunTriaged(ctx context.Context, trigger domain.Trigger) (triage.Decision, bool)
	RunAuthoritative(ctx context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error)
	RunFull(ctx context.Context) agent.FullResult
	Status() agent.Status
}

type ReporterServer struct {
	Logger   *zap.Logger
	Reporter Reporter
}

func NewReporterServer(l *zap.Logger, r Reporter) *ReporterServer {
	return &ReporterServer{Logger: l, Reporter: r}
}

func (s *ReporterServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.Logger))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Reporter.Status())
	})
	r.Get("/speedtest", s.handleQuick)
	r.Get("/speedtest/ookla", s.handleAuthoritative)
	r.Get("/speedtest/full", s.handleFull)
	return r
}

type triagedResponse struct {
	Status       string                   `json:"status"`
	Result       domain.SpeedTestOutcome  `json:"result"`
	Quick        domain.SpeedTestOutcome  `json:"quick"`
	Confirmation *domain.SpeedTestOutcome `json:"confirmation,omitempty"`
	Slow         bool                     `json:"slow"`
	SlowMode     bool                     `json:"slow_mode"`
}

func (s *ReporterServer) handleQuick(w http.ResponseWriter, r *http.Request) {
	d, ok := s.Reporter.RunTriaged(r.Context(), domain.TriggerManual)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "speed test failed")
		return
	}
	writeJSON(w, http.StatusOK, triagedResponse{
		Status:       "ok",
		Result:       d.GroundTruth,
		Quick:        d.Quick,
		Confirmation: d.Confirmation,
		Slow:         d.Slow,
		SlowMode:     d.SlowMode,
	})
}

func (s *ReporterServer) handleAuthoritative(w http.ResponseWriter, r *http.Request) {
	o, err := s.Reporter.RunAuthoritative(r.Context(), domain.TriggerManual)
	switch {
	case errors.Is(err, agent.ErrNoAuthoritative):
		writeError(w, http.StatusNotImplemented, err.Error())
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "speed test failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": o})
	}
}

func (s *ReporterServer) handleFull(w http.ResponseWriter, r *http.Request) {
	res := s.Reporter.RunFull(r.Context())
	if res.Quick == nil && res.Authoritative == nil {
		writeError(w, http.StatusServiceUnavailable, "speed test failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": res})
}
