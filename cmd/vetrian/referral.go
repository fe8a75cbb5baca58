package main

import (
	"context"
	"fmt"

	"vetrian/internal/db"
	"vetrian/internal/registration"
	"vetrian/internal/store"

	"github.com/urfave/cli/v2"
)

var referralCommand = &cli.Command{
	Name:  "referral",
	Usage: "Generate or verify referral codes",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Print referral codes not yet issued",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "count",
					Aliases: []string{"c"},
					Usage:   "Number of codes to generate",
					Value:   1,
				},
				&cli.BoolFlag{
					Name:  "offline",
					Usage: "Sample codes without checking the database",
				},
			},
			Action: generateReferrals,
		},
		{
			Name:      "verify",
			Usage:     "Check a referral code and show its owner",
			ArgsUsage: "<code>",
			Action:    verifyReferral,
		},
	},
}

func generateReferrals(cCtx *cli.Context) error {
	if cCtx.Bool("offline") {
		codes := registration.NewReferralCodes(nil)
		for range cCtx.Int("count") {
			code, err := codes.Candidate()
			if err != nil {
				return err
			}
			fmt.Println(code)
		}
		return nil
	}

	return withReferralCodes(cCtx, func(ctx context.Context, codes *registration.ReferralCodes) error {
		for range cCtx.Int("count") {
			code, err := codes.Generate(ctx)
			if err != nil {
				return err
			}
			fmt.Println(code)
		}
		return nil
	})
}

func verifyReferral(cCtx *cli.Context) error {
	code := cCtx.Args().First()
	if code == "" {
		return fmt.Errorf("usage: referral verify <code>")
	}

	return withReferralCodes(cCtx, func(ctx context.Context, codes *registration.ReferralCodes) error {
		result, err := codes.Verify(ctx, code)
		if err != nil {
			return err
		}

		if !result.Valid {
			fmt.Printf("%s: %s\n", result.Code, result.Message)
			return nil
		}

		fmt.Printf("%s: %s (referrer %s, %s)\n", result.Code, result.Message, result.ReferrerName, result.ReferrerID)
		return nil
	})
}

func withReferralCodes(cCtx *cli.Context, fn func(context.Context, *registration.ReferralCodes) error) error {
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

	return fn(ctx, registration.NewReferralCodes(store.NewRegistrantRepository(pool)))
}
