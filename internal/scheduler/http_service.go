package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"photo-rater/internal/logging"
)

// HTTPServer is the lifecycle half of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server under the supervisor. A server that
// cannot listen is restarted with backoff; on ctx cancellation it is shut
// down gracefully within the timeout.
type HTTPService struct {
	name            string
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. A non-positive timeout means 10 seconds.
func NewHTTPService(name string, server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{name: name, server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", s.name, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn("%s shutdown error: %v", s.name, err)
			return fmt.Errorf("%s shutdown failed: %w", s.name, err)
		}
		<-errCh
		logging.Info("  [OK] %s stopped", s.name)
		return ctx.Err()
	}
}

func (s *HTTPService) String() string {
	return s.name
}
