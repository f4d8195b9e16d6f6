package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jbbrd/DES-for-YB-operations/sim/trace"
)

// AllocationStrategy picks an empty slot in the vessel's sub-block for a
// container that cannot join an existing stack of its group.
// Implementations must only return slots for which view.Empty is true.
type AllocationStrategy interface {
	Pick(c *Container, ves *Vessel, view *Projection, rng *rand.Rand) (Coord, bool)
}

// RandomStrategy draws coordinates uniformly inside the sub-block until an
// empty slot turns up, giving up after Retries redraws.
type RandomStrategy struct {
	Retries int
}

func (s *RandomStrategy) Pick(_ *Container, ves *Vessel, view *Projection, rng *rand.Rand) (Coord, bool) {
	bays := ves.LastBay - ves.FirstBay + 1
	for attempt := 0; attempt <= s.Retries; attempt++ {
		c := Coord{X: rng.IntN(view.Yard.X) + 1, Y: ves.FirstBay + rng.IntN(bays)}
		if view.Empty(c) {
			return c, true
		}
	}
	return AllocationFailed, false
}

// IncrementalStrategy scans the sub-block from its first slot.
type IncrementalStrategy struct{}

func (s *IncrementalStrategy) Pick(_ *Container, ves *Vessel, view *Projection, _ *rand.Rand) (Coord, bool) {
	for i := ves.FirstSlot; i <= ves.LastSlot; i++ {
		if c := view.Yard.SlotAt(i); view.Empty(c) {
			return c, true
		}
	}
	return AllocationFailed, false
}

// DecrementalStrategy scans the sub-block from its last slot.
type DecrementalStrategy struct{}

func (s *DecrementalStrategy) Pick(_ *Container, ves *Vessel, view *Projection, _ *rand.Rand) (Coord, bool) {
	for i := ves.LastSlot; i >= ves.FirstSlot; i-- {
		if c := view.Yard.SlotAt(i); view.Empty(c) {
			return c, true
		}
	}
	return AllocationFailed, false
}

// ShortestStrategy picks the empty slot closest in travel time to the
// sub-block's reference point: the sea-side end of its first bay for imports,
// of its last bay for exports. Ties go to the lowest slot index.
type ShortestStrategy struct {
	Travel TravelModel
}

func (s *ShortestStrategy) Pick(c *Container, ves *Vessel, view *Projection, _ *rand.Rand) (Coord, bool) {
	ref := referencePoint(c, ves)
	best, bestDist := AllocationFailed, math.Inf(1)
	for i := ves.FirstSlot; i <= ves.LastSlot; i++ {
		slot := view.Yard.SlotAt(i)
		if !view.Empty(slot) {
			continue
		}
		if d := s.Travel.Restore(ref, slot); d < bestDist {
			best, bestDist = slot, d
		}
	}
	return best, best != AllocationFailed
}

func referencePoint(c *Container, ves *Vessel) Coord {
	if c.Class == Import {
		return Coord{Y: ves.FirstBay}
	}
	return Coord{Y: ves.LastBay}
}

// NewAllocationStrategy creates an AllocationStrategy by name.
// Valid names: "random" (default), "incremental", "decremental", "shortest".
// Empty string defaults to RandomStrategy (for CLI flag default compatibility).
// Panics on unrecognized names.
func NewAllocationStrategy(name string, retries int, travel TravelModel) AllocationStrategy {
	if !ValidAllocationStrategies[name] {
		panic(fmt.Sprintf("unknown allocation strategy %q", name))
	}
	switch name {
	case "", "random":
		return &RandomStrategy{Retries: retries}
	case "incremental":
		return &IncrementalStrategy{}
	case "decremental":
		return &DecrementalStrategy{}
	case "shortest":
		return &ShortestStrategy{Travel: travel}
	default:
		panic(fmt.Sprintf("unhandled allocation strategy %q", name))
	}
}

// Allocation is the outcome of one allocation call.
type Allocation struct {
	Slot        Coord
	SharedStack bool
}

// Failed reports whether no slot could be found.
func (a Allocation) Failed() bool {
	return a.Slot == AllocationFailed
}

// Allocator assigns yard slots to unplaced containers against the projected view.
type Allocator struct {
	name     string
	strategy AllocationStrategy
	topo     *Topology
	travel   TravelModel
	trace    *trace.SimulationTrace
}

// NewAllocator wires a strategy to the topology. tr may be nil.
func NewAllocator(name string, strategy AllocationStrategy, topo *Topology, travel TravelModel, tr *trace.SimulationTrace) *Allocator {
	if name == "" {
		name = "random"
	}
	return &Allocator{name: name, strategy: strategy, topo: topo, travel: travel, trace: tr}
}

// Allocate returns c's slot, assigning one when c has none. A stack of the
// same group with free capacity is preferred; otherwise the strategy opens a
// new stack inside the vessel's sub-block. Successful assignments are
// reserved in view so later calls of the same batch see them.
func (a *Allocator) Allocate(c *Container, view *Projection, now int64, rng *rand.Rand) Allocation {
	if c.Slot.IsSlot() {
		return Allocation{Slot: c.Slot}
	}
	ves := &a.topo.Vessels[c.Vessel]

	for _, s := range view.Groups.Slots(c.Group) {
		if view.Free(s) > 0 {
			view.Reserve(s, c)
			a.record(c, ves, s, true, now)
			return Allocation{Slot: s, SharedStack: true}
		}
	}

	// Computed before the reservation so the chosen slot is still a candidate.
	var candidates []trace.CandidateSlot
	if a.trace.Enabled() && a.trace.Config.CounterfactualK > 0 {
		candidates = a.nearestEmpty(c, ves, view, a.trace.Config.CounterfactualK)
	}
	s, ok := a.strategy.Pick(c, ves, view, rng)
	if !ok {
		logrus.Warnf("[tick %07d] no free slot for %s in bays %d-%d (%s)", now, c, ves.FirstBay, ves.LastBay, a.name)
		a.record(c, ves, AllocationFailed, false, now)
		return Allocation{Slot: AllocationFailed}
	}
	view.Reserve(s, c)
	if a.trace.Enabled() {
		a.recordNew(c, ves, s, candidates, now)
	}
	return Allocation{Slot: s}
}

func (a *Allocator) record(c *Container, ves *Vessel, s Coord, shared bool, now int64) {
	if !a.trace.Enabled() {
		return
	}
	rec := trace.AllocationRecord{
		ContainerID: c.ID,
		Clock:       now,
		Group:       c.Group,
		Vessel:      c.Vessel,
		Strategy:    a.name,
		X:           s.X,
		Y:           s.Y,
		SharedStack: shared,
		Failed:      s == AllocationFailed,
	}
	if !rec.Failed {
		rec.Distance = a.travel.Restore(referencePoint(c, ves), s)
	}
	a.trace.RecordAllocation(rec)
}

func (a *Allocator) recordNew(c *Container, ves *Vessel, s Coord, candidates []trace.CandidateSlot, now int64) {
	d := a.travel.Restore(referencePoint(c, ves), s)
	rec := trace.AllocationRecord{
		ContainerID: c.ID,
		Clock:       now,
		Group:       c.Group,
		Vessel:      c.Vessel,
		Strategy:    a.name,
		X:           s.X,
		Y:           s.Y,
		Distance:    d,
		Candidates:  candidates,
	}
	if len(candidates) > 0 {
		rec.Regret = math.Max(0, d-candidates[0].Distance)
	}
	a.trace.RecordAllocation(rec)
}

// nearestEmpty returns the k empty slots of the sub-block closest to the reference point.
func (a *Allocator) nearestEmpty(c *Container, ves *Vessel, view *Projection, k int) []trace.CandidateSlot {
	ref := referencePoint(c, ves)
	var all []trace.CandidateSlot
	for i := ves.FirstSlot; i <= ves.LastSlot; i++ {
		s := view.Yard.SlotAt(i)
		if view.Empty(s) {
			all = append(all, trace.CandidateSlot{X: s.X, Y: s.Y, Distance: a.travel.Restore(ref, s)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if len(all) > k {
		all = all[:k]
	}
	return all
}
