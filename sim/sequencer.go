package sim

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jbbrd/DES-for-YB-operations/sim/trace"
)

// QueueSequencer reorders the pending queue after every arrival batch.
// Implementations sort the slice in-place and must be deterministic.
type QueueSequencer interface {
	Sequence(jobs []*Container, clock int64)
}

// DueTimeSequencer sorts jobs by due time; ties keep their previous order.
type DueTimeSequencer struct{}

func (d *DueTimeSequencer) Sequence(jobs []*Container, _ int64) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].Due < jobs[j].Due
	})
}

// WindowedSequencer sorts by due time, then cuts the queue into fixed-size
// windows and lets a RouteOptimizer reorder each window to shorten the
// crane's tour. The first job of a window keeps its place. Any optimizer
// failure leaves the window in due-time order.
type WindowedSequencer struct {
	Window    int
	Timeout   time.Duration // per window; 0 = no deadline
	Optimizer RouteOptimizer
	Travel    TravelModel
	Trace     *trace.SimulationTrace // may be nil
}

func (w *WindowedSequencer) Sequence(jobs []*Container, clock int64) {
	(&DueTimeSequencer{}).Sequence(jobs, clock)
	if w.Window < 3 {
		return
	}
	for start := 0; start < len(jobs); start += w.Window {
		end := min(start+w.Window, len(jobs))
		if end-start < 3 {
			continue // anchored first job leaves a single possible order
		}
		w.reorderWindow(jobs[start:end], start, clock)
	}
}

func (w *WindowedSequencer) reorderWindow(window []*Container, start int, clock int64) {
	legs := make([]Leg, len(window))
	for i, c := range window {
		legs[i] = Leg{Pickup: c.PickupPoint(), Dropoff: c.DropoffPoint()}
	}
	cost := CostFunc(w.Travel.Restore)

	ctx := context.Background()
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	order, err := w.Optimizer.Reorder(ctx, legs, cost)
	if err == nil && !validPermutation(order, len(legs)) {
		err = fmt.Errorf("optimizer returned invalid order %v", order)
	}

	before := TourCost(legs, identity(len(legs)), cost)
	if err != nil {
		logrus.Warnf("[tick %07d] sequencing window at %d kept due-time order: %v", clock, start, err)
		if w.Trace.Enabled() {
			w.Trace.RecordSequencing(trace.SequencingRecord{
				Clock: clock, WindowStart: start, Size: len(window),
				Reason: err.Error(), CostBefore: before, CostAfter: before,
			})
		}
		return
	}

	orig := slices.Clone(window)
	for i, idx := range order {
		window[i] = orig[idx]
	}
	if w.Trace.Enabled() {
		w.Trace.RecordSequencing(trace.SequencingRecord{
			Clock: clock, WindowStart: start, Size: len(window), Optimized: true,
			CostBefore: before, CostAfter: TourCost(legs, order, cost),
		})
	}
}

// NewSequencer creates a QueueSequencer by name.
// Valid names: "due-time" (default), "windowed".
// Empty string defaults to DueTimeSequencer (for CLI flag default compatibility).
// Panics on unrecognized names.
func NewSequencer(policy PolicyConfig, travel TravelModel, tr *trace.SimulationTrace) QueueSequencer {
	name := policy.Sequencer
	if !ValidSequencers[name] {
		panic(fmt.Sprintf("unknown sequencer %q", name))
	}
	switch name {
	case "", "due-time":
		return &DueTimeSequencer{}
	case "windowed":
		return &WindowedSequencer{
			Window:    policy.WindowSize,
			Timeout:   policy.OptimizerTimeout,
			Optimizer: &HeldKarpOptimizer{MaxLegs: policy.WindowSize},
			Travel:    travel,
			Trace:     tr,
		}
	default:
		panic(fmt.Sprintf("unhandled sequencer %q", name))
	}
}
