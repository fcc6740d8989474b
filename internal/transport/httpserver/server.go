package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mirror-sync-go/internal/config"
	"mirror-sync-go/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server is the admin API listener.
type Server struct {
	srv *http.Server
	log logger.Logger
}

func New(cfg config.Config, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
		log: log,
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is done or the listener fails, then shuts down,
// waiting at most shutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("http: listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("http: shutdown requested")
	case err := <-serveErr:
		if err != nil {
			s.log.Critical("http: server failed", "addr", s.srv.Addr, "err", err)
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("http: graceful shutdown failed", "err", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
