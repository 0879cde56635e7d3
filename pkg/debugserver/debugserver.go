// Package debugserver exposes the particle engine over HTTP for inspection:
// Prometheus metrics, a JSON listing of live systems and a spawn queue that
// the frame loop drains.
//
// The engine is single threaded. Handlers never touch it directly; they read
// the last published Stats and hand spawn requests over a channel.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SystemStat is one live system in a Stats listing.
type SystemStat struct {
	Name       string `json:"name"`
	Attachment string `json:"attachment"`
	Attached   bool   `json:"attached"`
	Infinite   bool   `json:"infinite"`
	LazyRemove bool   `json:"lazyRemove"`
	Ejectors   int    `json:"ejectors"`
}

// Stats is a snapshot of the engine taken at the end of a frame.
type Stats struct {
	Time      int          `json:"time"`
	Systems   int          `json:"systems"`
	Ejectors  int          `json:"ejectors"`
	Particles int          `json:"particles"`
	Templates []string     `json:"templates"`
	Live      []SystemStat `json:"live"`
}

// SpawnRequest asks the frame loop to start a system at a point.
type SpawnRequest struct {
	Name   string     `json:"name"`
	Point  [3]float64 `json:"point"`
	Normal [3]float64 `json:"normal"`
}

// Monitor holds the latest Stats. Publish is called from the frame loop,
// Stats from any goroutine.
type Monitor struct {
	v atomic.Pointer[Stats]
}

// Publish replaces the current snapshot.
func (m *Monitor) Publish(s Stats) {
	m.v.Store(&s)
}

// Stats returns the current snapshot, zero before the first Publish.
func (m *Monitor) Stats() Stats {
	if s := m.v.Load(); s != nil {
		return *s
	}
	return Stats{}
}

// Config wires the router.
type Config struct {
	Monitor *Monitor
	// Spawns receives spawn requests. A nil channel disables the endpoint.
	Spawns chan<- SpawnRequest
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// SpawnLimiter throttles POST /debug/spawn. Nil allows 5 per second.
	SpawnLimiter *rate.Limiter
	Logger       *zap.SugaredLogger
	// DisableLogging drops the request logger middleware.
	DisableLogging bool
}

type handlers struct {
	monitor *Monitor
	spawns  chan<- SpawnRequest
	limiter *rate.Limiter
}

// NewRouter builds the HTTP handler. It starts no goroutines.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	limiter := cfg.SpawnLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 5)
	}
	monitor := cfg.Monitor
	if monitor == nil {
		monitor = &Monitor{}
	}
	h := &handlers{monitor: monitor, spawns: cfg.Spawns, limiter: limiter}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/debug", func(r chi.Router) {
		r.Get("/systems", h.handleSystems)
		r.Get("/systems/{name}", h.handleSystemsNamed)
		r.Post("/spawn", h.handleSpawn)
	})
	return r
}

func (h *handlers) handleSystems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.monitor.Stats())
}

func (h *handlers) handleSystemsNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	live := make([]SystemStat, 0)
	for _, s := range h.monitor.Stats().Live {
		if s.Name == name {
			live = append(live, s)
		}
	}
	writeJSON(w, live)
}

func (h *handlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	if h.spawns == nil {
		writeError(w, "spawning disabled", http.StatusNotFound)
		return
	}
	if !h.limiter.Allow() {
		writeError(w, "too many spawn requests", http.StatusTooManyRequests)
		return
	}

	var req SpawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Normal == ([3]float64{}) {
		req.Normal = [3]float64{0, 0, 1}
	}

	select {
	case h.spawns <- req:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"queued": req.Name})
	default:
		writeError(w, "spawn queue full", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Serve runs the debug server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("debug server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
