package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"vetrian/internal/db"
	"vetrian/internal/seed"
	"vetrian/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Load demo registrants for local development",
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig(cCtx)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(config)
		ctx := context.Background()

		pool, err := db.Connect(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		uploads, err := newUploads(ctx, logger, config, pool)
		if err != nil {
			return err
		}

		registrations := newRegistrations(logger, store.NewRegistrantRepository(pool), uploads, nil)

		return seed.SeedRegistrants(ctx, registrations, seed.Samples(time.Now()), os.Stdout)
	},
}
