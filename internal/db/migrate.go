package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate creates the schema named by search_path and applies schema.sql.
// Every statement is idempotent so it is safe to run on each deploy.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schemaName string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if schemaName != "" {
		ident := pgx.Identifier{schemaName}.Sanitize()
		if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
			return fmt.Errorf("create schema %s: %w", schemaName, err)
		}
		if _, err := conn.Exec(ctx, "SET search_path TO "+ident); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
	}

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}
