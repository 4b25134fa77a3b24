// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"axiomind/internal/engine"
	"axiomind/internal/store"
)

// Server wires the pipeline and its optional persistence sink into a gin
// router.
type Server struct {
	sys             *engine.System
	sink            *store.LocalStore
	logger          *zap.Logger
	metrics         *apiMetrics
	maxQueryLength  int
	shutdownTimeout time.Duration
}

// Config configures the HTTP surface.
type Config struct {
	MaxQueryLength  int
	ShutdownTimeout time.Duration
}

// New builds a server. The sink may be nil, in which case nothing is
// persisted. A nil logger is replaced with a no-op logger.
func New(sys *engine.System, sink *store.LocalStore, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = 4096
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		sys:             sys,
		sink:            sink,
		logger:          logger,
		metrics:         newAPIMetrics(sys),
		maxQueryLength:  cfg.MaxQueryLength,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/query", s.handleQuery)
	v1.POST("/ground", s.handleGround)
	v1.POST("/reason", s.handleReason)
	v1.POST("/reflect", s.handleReflect)
	v1.GET("/metrics", s.handleMetrics)

	return r
}

// Serve runs the HTTP server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	srv := &http.Server{Handler: s.Router()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
