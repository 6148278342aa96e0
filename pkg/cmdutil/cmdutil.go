package cmdutil

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// InterruptChan returns a channel that is closed once the process receives
// SIGINT or SIGTERM. Closing lets any number of goroutines wait on it.
func InterruptChan() <-chan struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interruptChan := make(chan struct{})
	go func() {
		<-sigChan
		signal.Stop(sigChan)
		close(interruptChan)
	}()

	return interruptChan
}

// ForceExitAfter terminates the process with exit code 1 if shutdown has not
// completed within timeout. The returned function disarms the timer.
func ForceExitAfter(timeout time.Duration, logger *slog.Logger) (disarm func()) {
	timer := time.AfterFunc(timeout, func() {
		logger.Error("graceful shutdown timed out, forcing exit", slog.Duration("timeout", timeout))
		os.Exit(1)
	})

	return func() { timer.Stop() }
}

// ShutdownChan is closed on SIGINT/SIGTERM or when a fatal error arrives on
// errChan, whichever comes first. The error is logged.
func ShutdownChan(errChan <-chan error, logger *slog.Logger) <-chan struct{} {
	interruptChan := InterruptChan()

	shutdownChan := make(chan struct{})
	go func() {
		select {
		case <-interruptChan:
			logger.Info("received interrupt signal")
		case err := <-errChan:
			logger.Error("fatal service error, shutting down", slog.Any("error", err))
		}
		close(shutdownChan)
	}()

	return shutdownChan
}
