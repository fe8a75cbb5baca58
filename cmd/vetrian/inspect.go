package main

import (
	"context"
	"errors"
	"fmt"

	"vetrian/internal/db"
	"vetrian/internal/store"
	"vetrian/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Dump a stored registrant",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	},
	Action: func(cCtx *cli.Context) error {
		id := cCtx.Args().First()
		if id == "" {
			return fmt.Errorf("usage: inspect <id>")
		}

		config, err := loadConfig(cCtx)
		if err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		rec, err := store.NewRegistrantRepository(pool).RegistrantByID(ctx, id)
		if err != nil {
			if errors.Is(err, types.ErrRegistrantNotFound) {
				return fmt.Errorf("no registrant with id %s", id)
			}
			return err
		}

		printer := pp.New()
		printer.SetColoringEnabled(!cCtx.Bool("no-color"))
		printer.Println(rec)

		return nil
	},
}
