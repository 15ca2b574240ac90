package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"saas-api-console/internal/infra/metrics"
)

// NewPgxPool connects a pgx pool with a bounded connect timeout.
func NewPgxPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgxpool.ConnectConfig(ctx, cfg)
}

// StartPoolStatsReporter exports pool gauges until ctx is done.
func StartPoolStatsReporter(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s := pool.Stat()
				metrics.SetPoolConnections(s.TotalConns(), s.IdleConns(), s.AcquiredConns(), s.MaxConns())
			}
		}
	}()
}
