// Package monitor exposes a read-only HTTP view of a running kernel and
// its trace store. Thread-table reads go through Snapshot, which runs in
// interrupt context, so serving requests never races the scheduler; paths
// that must answer even when the kernel is not running (health, the access
// log) read the lock-free tick counter instead.
package monitor

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/dustin/go-humanize"

	"github.com/me/nanokern/internal/kernel"
	"github.com/me/nanokern/internal/store"
)

// Monitor is the HTTP handler for scheduler introspection.
type Monitor struct {
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
	kern      *kernel.Kernel
	store     store.Store // optional; trace endpoints 404 without it
	version   string
}

// Option configures optional Monitor dependencies.
type Option func(*Monitor)

// WithStore enables the trace endpoints backed by st.
func WithStore(st store.Store) Option {
	return func(m *Monitor) { m.store = st }
}

// WithVersion sets the version string reported by /healthz.
func WithVersion(v string) Option {
	return func(m *Monitor) { m.version = v }
}

// New creates a Monitor with all routes registered.
func New(k *kernel.Kernel, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "monitor"),
		startTime: time.Now(),
		kern:      k,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(m)
	}
	m.routes()
	return m
}

// ServeHTTP implements http.Handler.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

func (m *Monitor) routes() {
	r := m.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.traced)

	r.Get("/healthz", m.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", m.handleStats)
		r.Get("/threads", m.handleThreads)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", m.handleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", m.handleGetRun)
				r.Get("/events", m.handleListEvents)
			})
		})
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Tick      int64  `json:"tick"`
	Store     string `json:"store"`
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	st := "disabled"
	if m.store != nil {
		st = "sqlite"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   m.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(m.startTime).Round(time.Second).String(),
		Tick:      m.kern.TickCount(),
		Store:     st,
	})
}

type statsResponse struct {
	Now       int64  `json:"now"`
	Ticks     string `json:"ticks"`
	Idle      string `json:"idle_ticks"`
	Kernel    string `json:"kernel_ticks"`
	Switches  int64  `json:"switches"`
	Created   int64  `json:"created"`
	Exited    int64  `json:"exited"`
	IdleShare string `json:"idle_share"`
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	snap := m.kern.Snapshot()
	s := snap.Stats

	share := "n/a"
	if s.Ticks > 0 {
		share = humanize.FtoaWithDigits(float64(s.IdleTicks)/float64(s.Ticks)*100, 1) + "%"
	}
	respondOK(w, reqID, statsResponse{
		Now:       snap.Now,
		Ticks:     humanize.Comma(s.Ticks),
		Idle:      humanize.Comma(s.IdleTicks),
		Kernel:    humanize.Comma(s.KernelTicks),
		Switches:  s.Switches,
		Created:   s.Created,
		Exited:    s.Exited,
		IdleShare: share,
	})
}

func (m *Monitor) handleThreads(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	snap := m.kern.Snapshot()
	respondOK(w, reqID, snap.Threads)
}
