// Package server binds the dev service to HTTP: module requests, the HMR
// socket, devtools class reports, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	coreerrors "rds/internal/core/errors"
	"rds/internal/core/ports"
	"rds/internal/shared/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HMRPath      = "/@rds/hmr"
	HealthPath   = "/@rds/health"
	DevtoolsPath = "/@rds/devtools"
	MetricsPath  = "/@rds/metrics"

	immutable    = "max-age=31536000, immutable"
	maxReportLen = 64 << 10
	limiterTTL   = 10 * time.Minute
)

type Options struct {
	Addr    string
	Metrics bool
	// DevtoolsRate bounds class reports per second per remote address.
	DevtoolsRate float64
}

type Server struct {
	opts     Options
	svc      ports.DevService
	hub      *Hub
	limiters *util.LimiterRegistry
	server   *http.Server
	addr     string
}

// New builds a server. ctx bounds the devtools limiter sweeper.
func New(ctx context.Context, svc ports.DevService, hub *Hub, opts Options) *Server {
	burst := int(opts.DevtoolsRate)
	if burst < 1 {
		burst = 1
	}
	return &Server{
		opts:     opts,
		svc:      svc,
		hub:      hub,
		limiters: util.NewLimiterRegistry(ctx, opts.DevtoolsRate, burst, limiterTTL),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get(HMRPath, func(w http.ResponseWriter, r *http.Request) {
		s.hub.Serve(w, r, s.svc.Greeting())
	})
	r.Get(HealthPath, s.handleHealth)
	r.Post(DevtoolsPath, s.handleDevtools)
	if s.opts.Metrics {
		r.Handle(MetricsPath, promhttp.Handler())
	}
	r.Get("/*", s.handleRoute)
	r.Head("/*", s.handleRoute)
	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("dev server listening", "addr", s.addr)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("dev server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address once Start returned.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Route(r.Context(), r.URL.Path, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	switch resp.Kind {
	case ports.ResponseRedirect:
		http.Redirect(w, r, resp.Location, http.StatusFound)
	case ports.ResponseNotFound:
		http.NotFound(w, r)
	default:
		if resp.MIME != "" {
			w.Header().Set("Content-Type", resp.MIME)
		}
		if resp.Cacheable {
			w.Header().Set("Cache-Control", immutable)
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Content)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(resp.Content)
	}
}

// writeError answers a failed compile with the overlay text, so a module
// request made outside the HMR client still shows where it broke.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		status = http.StatusNotFound
	}
	p := coreerrors.ToPayload(err)
	body := p.Message
	if p.File != "" {
		body = p.File + "\n" + body
	}
	if p.Frame != "" {
		body += "\n\n" + p.Frame
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n"))
}

type devtoolsReport struct {
	Classes []string `json:"classes"`
}

func (s *Server) handleDevtools(w http.ResponseWriter, r *http.Request) {
	if !s.limiters.Allow(remoteKey(r)) {
		http.Error(w, "too many devtools reports", http.StatusTooManyRequests)
		return
	}

	var report devtoolsReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportLen)).Decode(&report); err != nil {
		http.Error(w, "invalid devtools report", http.StatusBadRequest)
		return
	}
	resp := s.svc.Devtools(report.Classes)
	w.Header().Set("Content-Type", resp.MIME)
	_, _ = w.Write(resp.Content)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.svc.Health(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func remoteKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
