package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vetrian/internal/db"
	"vetrian/internal/server"
	"vetrian/internal/store"

	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := newLogger(config)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	uploads, err := newUploads(ctx, logger, config, pool)
	if err != nil {
		return err
	}

	pub := newPublisher(logger, config)
	defer func() {
		if err := pub.Close(); err != nil {
			logger.WithError(err).Error("failed to close event publisher")
		}
	}()

	registrantRepo := store.NewRegistrantRepository(pool)
	registrations := newRegistrations(logger, registrantRepo, uploads, pub)

	srv, err := server.New(config, logger, registrations, uploads, registrantRepo)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
