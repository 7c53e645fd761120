package startup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB opens a pool and pings it, retrying while Postgres is unavailable.
func ConnectDB(ctx context.Context, poolCfg *pgxpool.Config, maxWait time.Duration) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := retry(ctx, "db connect", maxWait, func(ctx context.Context) error {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		p, err := pgxpool.NewWithConfig(connCtx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(connCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}
