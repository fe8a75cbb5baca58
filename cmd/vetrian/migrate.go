package main

import (
	"context"
	"fmt"

	"vetrian/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create the schema and tables",
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig(cCtx)
		if err != nil {
			return err
		}

		logger := newLogger(config)
		ctx := context.Background()

		pool, err := db.Connect(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, config.DatabaseSchema); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}

		logger.WithField("schema", config.DatabaseSchema).Info("schema is up to date")
		return nil
	},
}
