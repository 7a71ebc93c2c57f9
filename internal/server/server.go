// Package server exposes the relation graph's read/write contract and the
// editor and runtime lifecycle hooks over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/unitctl/internal/auth"
	"github.com/danmuck/unitctl/internal/guard"
	"github.com/danmuck/unitctl/internal/loader"
	"github.com/danmuck/unitctl/internal/observability"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// Resolver is the bidirectional id<->location mapping used to fill names.
type Resolver interface {
	IDFromLocation(location string) (string, bool)
	LocationFromID(id string) (string, bool)
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	store    *relations.Store
	resolver Resolver
	guard    *guard.Guard
	loader   *loader.Loader
	writes   auth.Validator
	ext      string
	logger   zerolog.Logger
	router   *gin.Engine
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = observability.Component(logger, "server")
	}
}

// WithGuard enables the editor lifecycle routes.
func WithGuard(g *guard.Guard) Option {
	return func(s *Server) {
		s.guard = g
	}
}

// WithLoader enables the runtime load/unload routes.
func WithLoader(l *loader.Loader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

// WithWriteAuth requires mutating requests to carry a token accepted by v.
func WithWriteAuth(v auth.Validator) Option {
	return func(s *Server) {
		s.writes = v
	}
}

func WithUnitExtension(ext string) Option {
	return func(s *Server) {
		if ext != "" {
			s.ext = ext
		}
	}
}

func New(name, addr string, corsOrigins []string, store *relations.Store, resolver Resolver, opts ...Option) *Server {
	observability.RegisterMetrics()
	s := &Server{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		store:    store,
		resolver: resolver,
		writes:   auth.Open{},
		ext:      relations.DefaultUnitExtension,
		logger:   observability.Component(log.Logger, "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.Instrument(name, s.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	r.Use(auth.RequireWrite(s.writes))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.router = r
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr).Msg("server.Server.Serve listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("server.Server.Serve shutdown failed")
		return err
	}
	s.logger.Info().Msg("server.Server.Serve stopped")
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
