// Package dashboard serves the read-only status API: live session state from
// the in-memory store and archived transcripts from the database.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the status server.
type StartOpts struct {
	Router RouterOpts
	Addr   string // listen address, e.g. "127.0.0.1:8090"
	Out    io.Writer
}

// Start launches the status HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Router.Sessions == nil {
		return fmt.Errorf("dashboard: session source is required")
	}
	if opts.Addr == "" {
		return fmt.Errorf("dashboard: listen address is required")
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Status server listening on %s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewRouter builds the Gin engine with all status routes registered.
func NewRouter(opts RouterOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
