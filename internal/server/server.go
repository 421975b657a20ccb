// Package server exposes a session over a small JSON HTTP API that a web
// page can drive.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/metrics"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// Session is the part of app.App the API drives.
type Session interface {
	Environment() env.Variant
	State() app.State
	Connect(ctx context.Context, confirm func(prompt string) bool) (app.State, error)
	Disconnect() app.State
	LoadToken(ctx context.Context, address string) (token.Info, error)
	SetAmount(amount string) app.State
	UseMax() (string, error)
	UseHalf() (string, error)
	Holdings(ctx context.Context) (*providers.Result, error)
	Burn(ctx context.Context, confirm workflow.Confirmer) (workflow.Result, error)
	Revoke(ctx context.Context, confirm workflow.Confirmer) (workflow.Result, error)
}

var _ Session = (*app.App)(nil)

// Options configures a Server.
type Options struct {
	Networks *chain.Registry
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// Registry backs /metrics and the request metrics. Nil uses the
	// default registry.
	Registry *prometheus.Registry
	Logger   *log.Logger
}

// Server is the HTTP API.
type Server struct {
	session  Session
	networks *chain.Registry
	logger   *log.Logger
	router   *chi.Mux
}

// New builds the router.
func New(session Session, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Networks == nil {
		opts.Networks = chain.NewRegistry()
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	s := &Server{
		session:  session,
		networks: opts.Networks,
		logger:   opts.Logger.WithModule("server"),
		router:   chi.NewRouter(),
	}

	s.router.Use(MetricsMiddleware(metrics.NewRequestMetrics("w3burn_api", reg), s.logger))
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	s.router.Route("/api", s.routes)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/env", s.getEnv)
	r.Get("/state", s.getState)
	r.Post("/connect", s.postConnect)
	r.Post("/disconnect", s.postDisconnect)
	r.Post("/contract", s.postContract)
	r.Post("/amount", s.postAmount)
	r.Post("/burn", s.postBurn)
	r.Post("/revoke", s.postRevoke)
	r.Get("/tokens", s.getTokens)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
