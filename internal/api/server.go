// Package api serves assignment editing sessions over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/assignyard/internal/lookup"
	"github.com/zulandar/assignyard/internal/notify"
	"github.com/zulandar/assignyard/internal/session"
	"github.com/zulandar/assignyard/internal/store"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Store            *store.Store
	Lookup           *lookup.Resources
	Sessions         *session.Registry
	Notifier         notify.Notifier
	ManagedCompanyID string
	AdvancedPlanning bool
	Port             int
	Out              io.Writer // startup banner
	LogOut           io.Writer // request log, none when nil
}

func (o *StartOpts) applyDefaults() {
	if o.Port <= 0 {
		o.Port = 8080
	}
	if o.Sessions == nil {
		o.Sessions = session.NewRegistry(30 * time.Minute)
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	if o.Lookup == nil && o.Store != nil {
		o.Lookup = lookup.New(o.Store.DB(), 20, 100)
	}
}

type server struct {
	opts    StartOpts
	metrics *metrics
}

// NewRouter builds the gin engine serving every API route.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("api: store is required")
	}
	opts.applyDefaults()

	router := gin.New()
	if opts.LogOut != nil {
		router.Use(gin.LoggerWithWriter(opts.LogOut))
	}
	router.Use(gin.Recovery())

	s := &server{opts: opts, metrics: newMetrics(opts.Sessions)}
	s.registerRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	gin.SetMode(gin.ReleaseMode)
	opts.applyDefaults()
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Assignment API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
