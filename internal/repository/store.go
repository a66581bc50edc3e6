package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assignment-engine/internal/persistence"
)

// DefaultStoreTimeout bounds a store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// base is embedded by every repository. Each call runs on the transaction
// carried by ctx when present and is bounded by timeout.
type base struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func newBase(pool *pgxpool.Pool, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return base{pool: pool, timeout: timeout}
}

func (b base) conn(ctx context.Context) (context.Context, context.CancelFunc, persistence.DBTX) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	return ctx, cancel, persistence.GetDBTX(ctx, b.pool)
}

