package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// DefaultShutdownTimeout is the time given to servers to finish their
// requests once the context of ListenAndServe is canceled.
const DefaultShutdownTimeout = time.Second * 5

// Server is an http server named in logs.
type Server struct {
	Name string
	*http.Server
}

// ListenAndServe runs the given servers until ctx is canceled. Servers then
// get shutdownTimeout to finish their requests, such as a running smoke test,
// before their connections are closed. A zero timeout uses
// DefaultShutdownTimeout.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...Server) {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("shutting down the server failed, closing connections").
					WithTag("server", s.Name).
					WithTag("shutdown_timeout", shutdownTimeout).
					Wrap(err))
				s.Close()
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s Server) {
			defer wg.Done()

			l, err := net.Listen("tcp", s.Addr)
			if err != nil {
				logs.Error(errors.New("listening failed").
					WithTag("server", s.Name).
					WithTag("addr", s.Addr).
					Wrap(err))
				return
			}

			logs.WithTag("server", s.Name).
				WithTag("addr", l.Addr().String()).
				Info("starting server")

			switch err := s.Serve(l); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("server", s.Name).Info("stopping server")

			default:
				logs.Warn(errors.New("server stopped").
					WithTag("server", s.Name).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns an empty string on HTTP 301, 400, 404 or 405
// status codes so that unknown paths do not create metric labels.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	return path
}
