package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbbrd/DES-for-YB-operations/sim/workload"
)

// smallConfig is a 2x4x2 block shared by two vessels with scripted traffic.
// Vessel 0 owns bays 1-2 (slot indices 0-3) and groups 1 (import) and 2 (export);
// vessel 1 owns bays 3-4 (slot indices 4-7) and groups 3 (import) and 4 (export).
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Yard = YardConfig{X: 2, Y: 4, Z: 2}
	cfg.Traffic.VesselIntervals = []float64{10, 10}
	cfg.Traffic.ImportCount = workload.CountSpec{Type: "constant", Value: 2}
	cfg.Traffic.Manual = true
	cfg.Topology = TopologyConfig{Groups: 4, ImportProportion: 0.5}
	cfg.Policy.Allocation = "incremental"
	return cfg
}

func mustSimulator(t *testing.T, cfg Config, opts ...SimulatorOption) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, opts...)
	require.NoError(t, err)
	return s
}

// runChecked executes events up to until, checking invariants after each one.
func runChecked(t *testing.T, s *Simulator, until int64) {
	t.Helper()
	require.NoError(t, s.CheckInvariants())
	for len(s.EventQueue) > 0 && s.EventQueue.Peek().Timestamp() <= until {
		ev := s.EventQueue.PopNext()
		s.Clock = ev.Timestamp()
		ev.Execute(s)
		if err := s.CheckInvariants(); err != nil {
			t.Fatalf("after %T at tick %d: %v", ev, s.Clock, err)
		}
	}
	s.Clock = max(s.Clock, until)
}

// storedContainer places a fresh stored container on the physical block.
func storedContainer(s *Simulator, id uint64, group int, slot Coord) *Container {
	v, _ := s.Topology.VesselOfGroup(group)
	c := NewContainer(id, group, v, s.Topology.ClassOfGroup(group), OpStoreFromSea, 0)
	c.Slot = slot
	c.YardEntry = 0
	c.Location = Stored
	s.Yard.Push(slot, c)
	s.Metrics.Occupancy.Observe(s.Clock, 1)
	return c
}
