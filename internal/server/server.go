// Package server provides HTTP server lifecycle management and routing.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// ReloadFunc handles SIGHUP.
type ReloadFunc func(ctx context.Context) error

// Server wraps http.Server with graceful shutdown and SIGHUP reloads.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc
	reloadFuncs   []ReloadFunc
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers a function to be called during graceful shutdown.
// Functions run in reverse registration order after the HTTP server stops.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", name, "error", err)
			return err
		}
		s.logger.Info("component stopped", "name", name)
		return nil
	})
}

// OnReload registers a function to run on SIGHUP. A failing reload is
// logged and the server keeps running.
func (s *Server) OnReload(name string, fn ReloadFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadFuncs = append(s.reloadFuncs, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			s.logger.Error("reload failed", "name", name, "error", err)
			return err
		}
		s.logger.Info("reloaded", "name", name)
		return nil
	})
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts
// down gracefully. SIGHUP triggers the registered reload functions.
func (s *Server) Run() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	for {
		select {
		case err := <-serverErr:
			return fmt.Errorf("server error: %w", err)
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				s.logger.Info("reload signal received")
				s.reload()
				continue
			}
			s.logger.Info("shutdown signal received", "signal", sig.String())
			return s.gracefulShutdown()
		}
	}
}

func (s *Server) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	funcs := s.reloadFuncs
	s.mu.Unlock()

	for _, fn := range funcs {
		_ = fn(ctx)
	}
}

// gracefulShutdown stops the HTTP server, then registered components.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return errors.Join(errs...)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
