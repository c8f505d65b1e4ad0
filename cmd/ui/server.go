package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Server provides the HTTP interface for the journal.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer builds the route table and wraps it in an http.Server.
func NewServer(port int, staticDir string, handler *APIHandler, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	handler.Register(mux)

	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			// Static file serving for CSS, JS, etc.
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		} else {
			logger.Warn("Static directory not found, UI assets disabled", zap.String("dir", staticDir))
		}
	}

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Named("api-server"),
	}
}

// Start runs the HTTP server in a new goroutine. Listen errors are sent on
// the returned channel.
func (s *Server) Start() <-chan error {
	errs := make(chan error, 1)
	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Web server failed", zap.Error(err))
			errs <- err
		}
		close(errs)
	}()
	return errs
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping web server...")
	return s.server.Shutdown(ctx)
}
