package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listings-etl/internal/db"
)

// storePool creates the pgx pool for commands that touch the database.
func storePool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect")
	}
	return pool, nil
}
