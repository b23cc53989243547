package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/hivecrm/contactbook/internal/config"
)

// HTTPServer serves the gin engine on the configured port and drains
// in-flight requests on shutdown.
type HTTPServer struct {
	engine *gin.Engine
	cfg    config.Config
}

// NewHTTPServer binds the router to the service configuration.
func NewHTTPServer(router *gin.Engine, cfg config.Config) *HTTPServer {
	router.HandleMethodNotAllowed = true
	router.ForwardedByClientIP = true
	return &HTTPServer{engine: router, cfg: cfg}
}

// Addr reports the listen address derived from the configured port.
func (s *HTTPServer) Addr() string {
	return ":" + s.cfg.HTTPPort
}

// Run serves until ctx is cancelled, then gives in-flight requests up to the
// configured shutdown timeout to finish.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr(),
		Handler: s.engine,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen on %s: %w", s.Addr(), err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("drain requests: %w", err)
		}
		return nil
	})

	return g.Wait()
}
