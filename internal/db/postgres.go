package db

import (
	"context"
	"fmt"
	"time"

	"backend-pacetrack/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := newPoolFn(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := pingPoolFn(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsurePostGIS reports the installed PostGIS version. Routes are
// stored as geography, so a database without the extension fails on
// the first saved run; better to hear about it at boot.
func EnsurePostGIS(ctx context.Context, q Querier) (string, error) {
	var version string
	if err := q.QueryRow(ctx, `SELECT PostGIS_Version()`).Scan(&version); err != nil {
		return "", fmt.Errorf("postgis not available: %w", err)
	}
	return version, nil
}

var (
	newPoolFn  = pgxpool.New
	pingPoolFn = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)
