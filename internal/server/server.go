// Package server exposes the lead log, metrics and assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

// Options configures a Server. Assistant may be nil; the AI endpoints then
// answer 503.
type Options struct {
	Table        *leads.Table
	Assistant    *assistant.Assistant
	Logger       *zap.Logger
	ManagerPhone string
	ReportDays   int
	Now          func() time.Time
}

type Server struct {
	table      *leads.Table
	asst       *assistant.Assistant
	log        *zap.Logger
	tel        *telemetry
	phone      string
	reportDays int
	now        func() time.Time
	router     http.Handler
}

func New(o Options) *Server {
	s := &Server{
		table:      o.Table,
		asst:       o.Assistant,
		log:        o.Logger,
		tel:        newTelemetry(),
		phone:      o.ManagerPhone,
		reportDays: o.ReportDays,
		now:        o.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.reportDays <= 0 {
		s.reportDays = 7
	}
	if s.table == nil {
		s.table = &leads.Table{}
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(accessLog(s.log, s.tel))
	mux.Use(recoverer(s.log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "leads": s.table.Len(), "ai": s.asst != nil})
	})
	mux.Handle("/metrics", s.tel.handler())

	mux.Route("/api/reps", func(r chi.Router) {
		r.Get("/", s.handleReps)
		r.Route("/{rep}", func(r chi.Router) {
			r.Get("/overview", s.handleOverview)
			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/report", s.handleReport)
			r.Post("/priorities", s.handlePriorities)
			r.Post("/coach", s.handleCoach)
			r.Post("/messages", s.handleMessage)
			r.Post("/manager-report", s.handleManagerReport)
		})
	})
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
