package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsRecorderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)

	rec.Observe(context.Background(), "assign_asset", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "assign_asset", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "assign_asset", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.operations.WithLabelValues("assign_asset", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("assign_asset", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.durations))
}

func TestPrometheusMetricsRecorderReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)
	second, err := NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)

	second.Observe(context.Background(), "list_assets", true, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.operations.WithLabelValues("list_assets", "success")))
}

func TestServiceReportsOperationMetrics(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.AssignAsset(context.Background(), f.asset.ID, f.staff.ID)
	require.NoError(t, err)
	_, _, err = f.svc.AssignAsset(context.Background(), 404, f.staff.ID)
	require.Error(t, err)
	assert.True(t, f.metrics.has("assign_asset", true))
	assert.True(t, f.metrics.has("assign_asset", false))
}
