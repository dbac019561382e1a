// Package httpserver is the thin net/http bootstrap shared by the meta
// service and the reference storage-node binary: bind an address,
// serve a handler, and log the outcome. The teacher's version of this
// package hard-coded a single join endpoint on the default mux; this
// generalizes it to take any handler and address, and to log through
// the shared structured logger instead of the standard log package.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Serve runs an HTTP server on addr until ctx is canceled, then shuts
// it down gracefully. It blocks until the server has fully stopped.
func Serve(ctx context.Context, addr string, handler http.Handler, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server starting")
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
