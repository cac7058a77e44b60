package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/demoapi/config"
	"github.com/padraicbc/demoapi/models"
)

// Setup opens a PostgreSQL connection using the provided config and verifies it with a ping.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db := Open(cfg.PostgresDSN(), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Open wraps a pgdriver connector in a bun.DB without touching the network.
func Open(dsn string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating table for %T: %w", (*models.User)(nil), err)
	}

	// No ON DELETE action: deleting a user with demos fails on the foreign key.
	if _, err := db.NewCreateTable().Model((*models.Demo)(nil)).
		IfNotExists().
		ForeignKey(`("create_user") REFERENCES "user" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("creating table for %T: %w", (*models.Demo)(nil), err)
	}

	if _, err := db.NewCreateIndex().Model((*models.Demo)(nil)).
		Index("demo_md5sum_idx").
		Column("md5sum").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("creating md5sum index: %w", err)
	}

	return nil
}
