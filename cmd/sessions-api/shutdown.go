package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightsource/sessions-api/internal/observability"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 30 * time.Second

// runApplication starts the listeners and blocks until a shutdown
// signal arrives or the server fails.
func runApplication(app *application, logger observability.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(context.Background())
	}()

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()

	if app.metricsServer != nil {
		go func() {
			if err := app.metricsServer.Start(metricsCtx); err != nil {
				logger.Error("metrics server error", observability.Error(err))
			}
		}()
	}

	return waitForShutdown(app, serverErr, logger)
}

// waitForShutdown waits for a shutdown signal and stops components in
// dependency order: listeners first, then outbound clients, then
// storage, the tracer last.
func waitForShutdown(app *application, serverErr <-chan error, logger observability.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", observability.Error(err))
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.metricsServer != nil {
		if err := app.metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server", observability.Error(err))
		}
	}

	if app.policyClient != nil {
		_ = app.policyClient.Close()
	}

	// The local limiter owns a cleanup goroutine; the redis limiter
	// only owns the client closed below.
	if closer, ok := app.limiter.(io.Closer); ok {
		_ = closer.Close()
	}

	if app.redisClient != nil {
		_ = app.redisClient.Close()
	}

	if err := app.db.Close(); err != nil {
		logger.Error("failed to close database", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("sessions-api stopped")

	return runErr
}
