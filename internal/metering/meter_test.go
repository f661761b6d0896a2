package metering

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRecordPostingCountsPerCompanyPerDay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	meter := NewMeter(client)
	ctx := context.Background()
	day := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)

	require.NoError(t, meter.RecordPosting(ctx, 1, day))
	require.NoError(t, meter.RecordPosting(ctx, 1, day))
	require.NoError(t, meter.RecordPosting(ctx, 2, day))
	require.NoError(t, meter.RecordPosting(ctx, 1, day.AddDate(0, 0, 1)))

	n, err := meter.PostingsOn(ctx, 1, day)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = meter.PostingsOn(ctx, 2, day)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// Counters carry a TTL for billing retention.
	require.Greater(t, mr.TTL("meter:postings:1:2025-03-01"), time.Duration(0))
}

func TestPostingsOnMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	n, err := NewMeter(client).PostingsOn(context.Background(), 9, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecordPostingNilClient(t *testing.T) {
	var meter *Meter
	require.NoError(t, meter.RecordPosting(context.Background(), 1, time.Now()))
}
