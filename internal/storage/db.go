package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// Capabilities records which optional columns exist in the connected
// database. Deployments migrated before the metadata columns were added keep
// working with those writes degraded rather than failing.
type Capabilities struct {
	PaperMetadata   bool
	SectionMetadata bool
}

func DetectCapabilities(ctx context.Context, db *DB) Capabilities {
	return Capabilities{
		PaperMetadata:   columnExists(ctx, db, "papers", "metadata"),
		SectionMetadata: columnExists(ctx, db, "sections", "metadata"),
	}
}

func columnExists(ctx context.Context, db *DB, table, column string) bool {
	var n int
	err := db.Pool.QueryRow(ctx, `
SELECT COUNT(*) FROM information_schema.columns
WHERE table_name=$1 AND column_name=$2`, table, column).Scan(&n)
	return err == nil && n > 0
}
