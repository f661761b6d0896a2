package metering

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyTTL keeps daily counters around long enough for monthly billing rollups.
const keyTTL = 45 * 24 * time.Hour

// Meter counts committed postings per company per day in redis. It is
// observational only: callers treat failures as log-worthy, never as a
// reason to roll back a committed transaction.
type Meter struct {
	client *redis.Client
}

// NewMeter constructs the posting meter.
func NewMeter(client *redis.Client) *Meter {
	return &Meter{client: client}
}

// RecordPosting increments the company's counter for the posting's day.
func (m *Meter) RecordPosting(ctx context.Context, companyID int64, at time.Time) error {
	if m == nil || m.client == nil {
		return nil
	}
	key := dailyKey(companyID, at)
	pipe := m.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// PostingsOn reads the counter for one company and day.
func (m *Meter) PostingsOn(ctx context.Context, companyID int64, day time.Time) (int64, error) {
	n, err := m.client.Get(ctx, dailyKey(companyID, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func dailyKey(companyID int64, at time.Time) string {
	return fmt.Sprintf("meter:postings:%d:%s", companyID, at.UTC().Format("2006-01-02"))
}
