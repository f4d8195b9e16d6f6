package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbbrd/DES-for-YB-operations/sim/trace"
)

func job(id uint64, due int64, op Operation, slot Coord) *Container {
	c := NewContainer(id, 2, 0, Export, op, 0)
	c.Due = due
	c.Slot = slot
	return c
}

func TestDueTimeSequencer_StableByDue(t *testing.T) {
	// GIVEN jobs with ties on due time
	jobs := []*Container{
		job(1, 30, OpStoreFromLand, Coord{X: 1, Y: 1}),
		job(2, 10, OpStoreFromLand, Coord{X: 1, Y: 1}),
		job(3, 30, OpStoreFromLand, Coord{X: 1, Y: 1}),
		job(4, 10, OpStoreFromLand, Coord{X: 1, Y: 1}),
	}

	(&DueTimeSequencer{}).Sequence(jobs, 0)

	// THEN ties keep their previous relative order
	assert.Equal(t, []uint64{2, 4, 1, 3}, ids(jobs))
}

type stubOptimizer struct {
	order []int
	err   error
	calls int
}

func (s *stubOptimizer) Reorder(_ context.Context, legs []Leg, _ CostFunc) ([]int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.order != nil {
		return s.order, nil
	}
	out := identity(len(legs))
	for i, j := 1, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func windowedJobs() []*Container {
	var jobs []*Container
	for i := 0; i < 7; i++ {
		jobs = append(jobs, job(uint64(i), int64(i), OpStoreFromSea, Coord{X: 1, Y: i + 1}))
	}
	return jobs
}

func TestWindowedSequencer_AppliesOptimizerPerWindow(t *testing.T) {
	// GIVEN seven jobs in due order, windows of three
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	opt := &stubOptimizer{}
	w := &WindowedSequencer{Window: 3, Optimizer: opt, Travel: NewTravelModel(DefaultConfig().Crane), Trace: tr}
	jobs := windowedJobs()

	// WHEN sequenced
	w.Sequence(jobs, 5)

	// THEN each full window keeps its head and reverses the rest; the tail job is untouched
	assert.Equal(t, []uint64{0, 2, 1, 3, 5, 4, 6}, ids(jobs))
	assert.Equal(t, 2, opt.calls)
	require.Len(t, tr.Sequencings, 2)
	assert.True(t, tr.Sequencings[0].Optimized)
	assert.Equal(t, 3, tr.Sequencings[1].WindowStart)
}

func TestWindowedSequencer_FallsBackToDueOrder(t *testing.T) {
	tests := []struct {
		name string
		opt  *stubOptimizer
	}{
		{"optimizer error", &stubOptimizer{err: errors.New("solver unavailable")}},
		{"invalid order", &stubOptimizer{order: []int{1, 0, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
			w := &WindowedSequencer{Window: 3, Optimizer: tt.opt, Travel: NewTravelModel(DefaultConfig().Crane), Trace: tr}
			jobs := windowedJobs()
			jobs[0], jobs[6] = jobs[6], jobs[0]

			w.Sequence(jobs, 0)

			// THEN the queue is in due-time order and the fallback is traced
			assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6}, ids(jobs))
			require.NotEmpty(t, tr.Sequencings)
			assert.False(t, tr.Sequencings[0].Optimized)
			assert.NotEmpty(t, tr.Sequencings[0].Reason)
		})
	}
}

func TestWindowedSequencer_RealOptimizerNeverLengthensTour(t *testing.T) {
	travel := NewTravelModel(DefaultConfig().Crane)
	w := &WindowedSequencer{Window: 6, Optimizer: &HeldKarpOptimizer{}, Travel: travel}
	var jobs []*Container
	for i, leg := range randomLegs(11, 6) {
		op := OpStoreFromSea
		slot := leg.Dropoff
		if leg.Pickup.IsSlot() {
			op, slot = OpRetrieveToLand, leg.Pickup
		}
		jobs = append(jobs, job(uint64(i), 0, op, slot))
	}
	legsOf := func(cs []*Container) []Leg {
		out := make([]Leg, len(cs))
		for i, c := range cs {
			out[i] = Leg{Pickup: c.PickupPoint(), Dropoff: c.DropoffPoint()}
		}
		return out
	}
	before := TourCost(legsOf(jobs), identity(6), travel.Restore)

	w.Sequence(jobs, 0)

	assert.Equal(t, uint64(0), jobs[0].ID)
	assert.LessOrEqual(t, TourCost(legsOf(jobs), identity(6), travel.Restore), before+1e-9)
}

func TestNewSequencer(t *testing.T) {
	travel := NewTravelModel(DefaultConfig().Crane)
	assert.IsType(t, &DueTimeSequencer{}, NewSequencer(PolicyConfig{}, travel, nil))
	w, ok := NewSequencer(PolicyConfig{Sequencer: "windowed", WindowSize: 4}, travel, nil).(*WindowedSequencer)
	require.True(t, ok)
	assert.Equal(t, 4, w.Window)
	assert.Panics(t, func() { NewSequencer(PolicyConfig{Sequencer: "edf"}, travel, nil) })
}
