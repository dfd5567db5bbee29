package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	metrics := NewPoolMetrics(prometheus.NewRegistry())

	client, err := New(context.Background(), Config{URL: "redis://" + mr.Addr() + "/0"}, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Health(context.Background()))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), Config{URL: "http://not-redis"}, nil)
	assert.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{URL: "redis://" + addr}, nil)
	assert.Error(t, err)
}

func TestRecordPoolStats(t *testing.T) {
	mr := miniredis.RunT(t)
	metrics := NewPoolMetrics(prometheus.NewRegistry())
	client, err := New(context.Background(), Config{URL: "redis://" + mr.Addr()}, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for i := 0; i < 3; i++ {
		require.NoError(t, client.Ping(context.Background()).Err())
	}
	client.RecordPoolStats()
	first := testutil.ToFloat64(metrics.hits)

	require.NoError(t, client.Ping(context.Background()).Err())
	client.RecordPoolStats()

	assert.Equal(t, float64(client.PoolStats().Hits), testutil.ToFloat64(metrics.hits))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.hits), first)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.totalConns), 1.0)
}

func TestRecordPoolStats_NoMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), Config{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NotPanics(t, client.RecordPoolStats)
}
