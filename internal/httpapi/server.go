package httpapi

import (
	"context"
	"crypto/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/heartbeat"
	apimw "github.com/hamed0406/linkwatch/internal/httpapi/middleware"
	"github.com/hamed0406/linkwatch/internal/incident"
)

// Collector is what the collector API serves.
type Collector interface {
	Heartbeat(ctx context.Context, bootID string, uptimeSeconds float64) heartbeat.Transition
	OutageReport(ctx context.Context, id string, r domain.OutageReport) error
	Ingest(ctx context.Context, e domain.Event) error
	Status() domain.ConnectivityState
	History(ctx context.Context, hours int, typ domain.EventType) ([]domain.Event, error)
	Summary(ctx context.Context, hours int) (incident.Summary, error)
	Incidents(ctx context.Context, hours int) ([]domain.Incident, error)
}

type Server struct {
	Logger    *zap.Logger
	Collector Collector
	Now       func() time.Time

	payload []byte
}

// NewServer builds the collector API. payloadBytes sizes the /speedtest
// body served to the reporter's quick tester.
func NewServer(l *zap.Logger, c Collector, payloadBytes int) *Server {
	p := make([]byte, payloadBytes)
	_, _ = rand.Read(p)
	return &Server{Logger: l, Collector: c, Now: time.Now, payload: p}
}

// Router wires the collector routes. Zero rate limits disable limiting.
func (s *Server) Router(keys apimw.Keys, origins []string, pubRPM, pubBurst, repRPM, repBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(origins))
	r.Use(accessLog(s.Logger))

	r.Get("/health", s.handleHealth)
	r.Get("/speedtest", s.handleSpeedtest)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(repRPM, repBurst))
		r.Use(apimw.RequireReporter(keys))
		r.Post("/api/heartbeat", s.handleHeartbeat)
		r.Post("/api/outage", s.handleOutage)
		r.Post("/api/events", s.handleEvent)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/summary", s.handleSummary)
		r.Get("/api/incidents", s.handleIncidents)
	})
	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	for _, o := range origins {
		if o == "*" {
			return cors.AllowAll().Handler
		}
	}
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSpeedtest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.payload)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.payload)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	uptime, _ := f.num("uptime_seconds")
	tr := s.Collector.Heartbeat(r.Context(), f.str("boot_id"), uptime)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": tr.Event})
}

func (s *Server) handleOutage(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	rep := outageFromFields(f, s.Now().UTC())
	if err := s.Collector.OutageReport(r.Context(), f.str("id"), rep); err != nil {
		s.Logger.Error("outage_report_store_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// outageFromFields fills whichever of start, end and duration is missing
// from the other two. End defaults to now.
func outageFromFields(f fields, now time.Time) domain.OutageReport {
	start, hasStart := f.timestamp("started_at")
	end, hasEnd := f.timestamp("ended_at")
	dur, hasDur := f.num("duration_seconds")
	if !hasEnd {
		end = now
	}
	if !hasStart && hasDur {
		start = end.Add(-time.Duration(dur * float64(time.Second)))
		hasStart = true
	}
	if !hasDur && hasStart {
		dur = end.Sub(start).Seconds()
	}
	if !hasStart {
		start = end
	}
	return domain.OutageReport{StartedAt: start, EndedAt: end, DurationSeconds: dur}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	typ := domain.EventType(f.str("type"))
	if typ == "" {
		typ = "unknown"
	}
	e := domain.Event{ID: f.str("id"), Type: typ, Payload: f.object("payload")}
	if at, ok := f.timestamp("observed_at"); ok {
		e.ObservedAt = at
	}
	if err := s.Collector.Ingest(r.Context(), e); err != nil {
		s.Logger.Error("event_store_error", zap.String("type", string(typ)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Collector.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	typ := domain.EventType(r.URL.Query().Get("type"))
	evs, err := s.Collector.History(r.Context(), hoursParam(r), typ)
	if err != nil {
		s.Logger.Error("history_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Collector.Summary(r.Context(), hoursParam(r))
	if err != nil {
		s.Logger.Error("summary_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	inc, err := s.Collector.Incidents(r.Context(), hoursParam(r))
	if err != nil {
		s.Logger.Error("incidents_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if inc == nil {
		inc = []domain.Incident{}
	}
	writeJSON(w, http.StatusOK, inc)
}
