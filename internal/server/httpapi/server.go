package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avorobjovs/keyguard/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server wraps http.Server with context-driven graceful shutdown.
type Server struct {
	addr    string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(addr string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
