package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbbrd/DES-for-YB-operations/sim"
)

func TestYardCollector_RecordsValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewYardCollector(reg)
	require.NoError(t, err)

	c.ObserveMove("restoring", 12)
	c.ObserveMove("to_stack", 30)
	c.ObserveMove("to_stack", 45)
	c.ObserveLeadTime(3.5)
	c.ObserveUtilization(0.42)
	c.SetQueueDepth(7)
	c.SetYardOccupancy(19)
	c.IncJobArrival("vessel_call", 40)
	c.IncJobArrival("vessel_call", 25)
	c.IncJobArrival("exogenous_arrival", 1)
	c.IncDiscarded()

	assert.Equal(t, 0.42, testutil.ToFloat64(c.Utilization))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.QueueDepth))
	assert.Equal(t, 19.0, testutil.ToFloat64(c.Occupancy))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.JobArrivals.WithLabelValues("vessel_call")))
	assert.Equal(t, 65.0, testutil.ToFloat64(c.Containers.WithLabelValues("vessel_call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Containers.WithLabelValues("exogenous_arrival")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Discarded))
	assert.Equal(t, 2, testutil.CollectAndCount(c.Moves))
}

func TestYardCollector_NilSafe(t *testing.T) {
	var c *YardCollector
	assert.NotPanics(t, func() {
		c.ObserveMove("to_vehicle", 1)
		c.ObserveUtilization(1)
		c.ObserveLeadTime(1)
		c.SetQueueDepth(1)
		c.SetYardOccupancy(1)
		c.IncJobArrival("vessel_call", 1)
		c.IncDiscarded()
	})
}

func TestYardCollector_ReusesRegisteredCollectors(t *testing.T) {
	// GIVEN a registry that already holds the yard metrics
	reg := prometheus.NewRegistry()
	first, err := NewYardCollector(reg)
	require.NoError(t, err)
	first.IncDiscarded()

	// WHEN a second collector registers on it
	second, err := NewYardCollector(reg)
	require.NoError(t, err)
	second.IncDiscarded()

	// THEN both share the same counters
	assert.Equal(t, 2.0, testutil.ToFloat64(first.Discarded))
}

func TestYardCollector_DrivenBySimulation(t *testing.T) {
	// GIVEN a short stochastic run wired to a fresh registry
	reg := prometheus.NewRegistry()
	c, err := NewYardCollector(reg)
	require.NoError(t, err)

	cfg := sim.DefaultConfig()
	cfg.Seed = 3
	s, err := sim.NewSimulator(cfg, sim.WithMetricsRecorder(c))
	require.NoError(t, err)

	// WHEN it runs for two days
	s.Run(48 * sim.TicksPerHour)

	// THEN the gauges mirror the simulator state
	assert.Equal(t, float64(s.Queue.Len()), testutil.ToFloat64(c.QueueDepth))
	assert.Equal(t, float64(s.Yard.Count()), testutil.ToFloat64(c.Occupancy))
	assert.Equal(t, float64(len(s.Metrics.Discarded)), testutil.ToFloat64(c.Discarded))
	assert.Positive(t, testutil.ToFloat64(c.JobArrivals.WithLabelValues("vessel_call")))
}

func TestYardCollector_WriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewYardCollector(reg)
	require.NoError(t, err)
	c.SetYardOccupancy(11)

	path := filepath.Join(t.TempDir(), "yard.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "yard_occupancy 11"))
}
