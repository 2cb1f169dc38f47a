package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const shutdownGrace = 5 * time.Second

// Serve runs srv until ctx is cancelled and then shuts it down, giving open
// requests shutdownGrace to finish. A graceful stop returns nil.
func Serve(ctx context.Context, logger *slog.Logger, name string, srv *http.Server) error {
	logger = logger.With(slog.String("server", name), slog.String("addr", srv.Addr))

	failed := make(chan error, 1)
	go func() {
		logger.Info("http server starting")
		failed <- srv.ListenAndServe()
	}()

	select {
	case err := <-failed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("http server failed", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	// ctx はキャンセル済みなので新しいコンテキストで待つ
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", slog.Any("error", err))
		return err
	}
	logger.Info("http server stopped")
	return nil
}
