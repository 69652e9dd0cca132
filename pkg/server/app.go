package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	xhttp "CandleNet/pkg/http"
	applogger "CandleNet/pkg/logger"
)

// Worker is a background loop that runs until its context is cancelled.
type Worker interface {
	Run(ctx context.Context) error
}

// App runs the HTTP server with its background workers.
type App struct {
	log     *applogger.Logger
	http    *xhttp.Server
	workers []Worker
}

func New(log *applogger.Logger, http *xhttp.Server) *App {
	return &App{log: log, http: http}
}

// AddWorker registers a loop started with the server.
func (a *App) AddWorker(w Worker) { a.workers = append(a.workers, w) }

// Run starts the application and blocks until ctx is cancelled or the process is interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, w := range a.workers {
		go func(w Worker) {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("worker stopped", applogger.Error(err))
			}
		}(w)
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.http.ShutdownTimeout())
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
