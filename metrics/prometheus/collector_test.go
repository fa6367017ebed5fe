package prometheus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mrpt"
	"github.com/hupe1980/mrpt/descriptor"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := NewCollector(reg, prometheus.Labels{"index": "test"})

	c.RecordBuild(100, time.Millisecond, nil)
	c.RecordBuild(0, time.Millisecond, errors.New("x"))
	c.RecordQuery(10, 40, time.Microsecond, nil)
	c.RecordSave(512, time.Millisecond, nil)
	c.RecordLoad(time.Millisecond, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues("build", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues("build", "error")), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(c.populationSz), 0)
	assert.InDelta(t, 512, testutil.ToFloat64(c.savedBytes), 0)

	expected := `
# HELP mrpt_population_size Number of descriptors in the last successful build
# TYPE mrpt_population_size gauge
mrpt_population_size{index="test"} 100
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mrpt_population_size"))

	n, err := testutil.GatherAndCount(reg, "mrpt_query_candidates")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollectorWithIndex(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, nil)

	idx, err := mrpt.New(ctx, descriptor.NewMemoryStore(), mrpt.WithMetricsCollector(c))
	require.NoError(t, err)
	require.NoError(t, idx.BuildIndex(ctx, []descriptor.Descriptor{
		{ID: 1, Vector: []float64{0, 1}},
		{ID: 2, Vector: []float64{1, 0}},
	}))
	_, err = idx.Query(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues("query", "ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.populationSz), 0)
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg, nil)
	assert.Panics(t, func() { NewCollector(reg, nil) })
}
