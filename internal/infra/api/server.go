// Package api serves the translation pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"code-translator/internal/config"
	"code-translator/internal/domain/ports/repository"
	"code-translator/internal/domain/ports/usecase"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type Options struct {
	// Auth enables bearer-token checks on /api routes when non-nil.
	Auth *Auth
	// Limiter enables per-client rate limiting when non-nil and Limit > 0.
	Limiter Limiter
	Limit   int
	Window  time.Duration
	// RequestTimeout bounds every request; zero leaves it to the pipeline.
	RequestTimeout time.Duration
	Probes         map[string]Probe
	// Artifacts serves job files the store no longer has; optional.
	Artifacts repository.ArtifactReader
}

type Server struct {
	pipe   usecase.Pipeline
	opts   Options
	probes map[string]Probe
	log    *zerolog.Logger
}

func NewServer(pipe usecase.Pipeline, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	probes := opts.Probes
	if probes == nil {
		probes = map[string]Probe{}
	}
	return &Server{pipe: pipe, opts: opts, probes: probes, log: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.opts.Auth != nil {
			r.Use(s.opts.Auth.Middleware())
		}
		r.Group(func(r chi.Router) {
			if s.opts.Limiter != nil && s.opts.Limit > 0 {
				r.Use(RateLimit(s.opts.Limiter, s.opts.Limit, s.opts.Window, s.log))
			}
			r.Post("/translate", s.handleTranslate)
			r.Post("/translate_and_verify", s.handleTranslateAndVerify)
			r.Get("/history", s.handleHistory)
			r.Get("/jobs/{id}", s.handleJob)
			r.Get("/jobs/{id}/{kind}", s.handleJobFile)
		})
	})
	return r
}

// ListenAndServe runs until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}
