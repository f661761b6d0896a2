package shared

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyJanitor prunes processed posting keys. Key claiming itself
// happens inside the posting transaction; this only handles retention.
type IdempotencyJanitor struct {
	pool *pgxpool.Pool
}

// NewIdempotencyJanitor constructs the janitor.
func NewIdempotencyJanitor(pool *pgxpool.Pool) *IdempotencyJanitor {
	return &IdempotencyJanitor{pool: pool}
}

// Cleanup removes entries older than retention.
func (s *IdempotencyJanitor) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
