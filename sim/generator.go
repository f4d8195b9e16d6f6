package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/jbbrd/DES-for-YB-operations/sim/workload"
)

// JobKind tells the generator which traffic source produced a job arrival.
type JobKind int

const (
	// VesselCall unloads imports and loads the vessel's stored boxes.
	VesselCall JobKind = iota
	// ExogenousArrival is one export or transshipment box arriving.
	ExogenousArrival
	// ExogenousDeparture is one import box ordered out by land.
	ExogenousDeparture
)

// JobRequest tags a job arrival. Vessel is only meaningful for VesselCall.
type JobRequest struct {
	Kind   JobKind
	Vessel int
}

func (k JobKind) String() string {
	switch k {
	case VesselCall:
		return "vessel_call"
	case ExogenousArrival:
		return "exogenous_arrival"
	case ExogenousDeparture:
		return "exogenous_departure"
	default:
		return fmt.Sprintf("job(%d)", int(k))
	}
}

func (r JobRequest) String() string {
	if r.Kind == VesselCall {
		return fmt.Sprintf("vessel_%d", r.Vessel)
	}
	return r.Kind.String()
}

// Batch is the output of one generator call.
type Batch struct {
	// Enqueue holds new storage jobs and stored boxes flipped to retrieval.
	Enqueue []*Container
	// Deferred holds boxes ordered out while still waiting to be stored.
	// They are already queued; the order is recorded on the container.
	Deferred []*Container
}

// Size is the number of containers the job concerns.
func (b Batch) Size() int {
	return len(b.Enqueue) + len(b.Deferred)
}

// JobGenerator turns job requests into container batches.
type JobGenerator struct {
	topo          *Topology
	imports       workload.CountSampler
	transshipment float64
	nextID        uint64
}

// NewJobGenerator creates a generator handing out IDs from firstID upwards.
func NewJobGenerator(topo *Topology, imports workload.CountSampler, transshipment float64, firstID uint64) *JobGenerator {
	return &JobGenerator{topo: topo, imports: imports, transshipment: transshipment, nextID: firstID}
}

func (g *JobGenerator) newID() uint64 {
	id := g.nextID
	g.nextID++
	return id
}

// Generate builds the batch for req against the projected yard view.
// Draws from rng in a fixed order per kind, so a seed fully determines the batch.
func (g *JobGenerator) Generate(req JobRequest, view *Projection, now int64, rng *rand.Rand) Batch {
	switch req.Kind {
	case VesselCall:
		return g.vesselCall(req.Vessel, view, now, rng)
	case ExogenousArrival:
		return g.exportArrival(now, rng)
	case ExogenousDeparture:
		return g.importDeparture(view, now, rng)
	default:
		panic(fmt.Sprintf("unhandled job kind %d", req.Kind))
	}
}

func (g *JobGenerator) vesselCall(v int, view *Projection, now int64, rng *rand.Rand) Batch {
	ves := &g.topo.Vessels[v]
	var b Batch

	// Unloading
	n := g.imports.SampleCount(rng)
	for i := 0; i < n; i++ {
		group := ves.ImportGroups[rng.IntN(len(ves.ImportGroups))]
		b.Enqueue = append(b.Enqueue, NewContainer(g.newID(), group, v, Import, OpStoreFromSea, now))
	}

	// Loading manifest: every box stored in the sub-block. Boxes still on
	// their way in are left for the next call.
	for idx := ves.FirstSlot; idx <= ves.LastSlot; idx++ {
		for _, c := range view.Yard.StackAt(idx) {
			if c.Location != Stored {
				continue
			}
			c.Op = OpRetrieveToSea
			c.Due = now
			b.Enqueue = append(b.Enqueue, c)
		}
	}
	return b
}

func (g *JobGenerator) exportArrival(now int64, rng *rand.Rand) Batch {
	v := rng.IntN(len(g.topo.Vessels))
	ves := &g.topo.Vessels[v]
	group := ves.ExportGroups[rng.IntN(len(ves.ExportGroups))]
	op := OpStoreFromLand
	if rng.Float64() <= g.transshipment {
		op = OpStoreFromSea
	}
	return Batch{Enqueue: []*Container{NewContainer(g.newID(), group, v, Export, op, now)}}
}

func (g *JobGenerator) importDeparture(view *Projection, now int64, rng *rand.Rand) Batch {
	v := rng.IntN(len(g.topo.Vessels))
	ves := &g.topo.Vessels[v]

	var available []int
	for _, group := range ves.ImportGroups {
		if view.Groups.Has(group) {
			available = append(available, group)
		}
	}
	if len(available) == 0 {
		return Batch{}
	}
	group := available[rng.IntN(len(available))]
	stacks := view.Groups.Slots(group)
	slot := stacks[rng.IntN(len(stacks))]
	c := view.Yard.Top(slot)

	if c.Location == Stored {
		c.Op = OpRetrieveToLand
		c.Due = now
		return Batch{Enqueue: []*Container{c}}
	}
	// Not on its stack yet: the crane turns the storage into a retrieval on drop-off.
	if c.DeferredDue != NotSet {
		return Batch{}
	}
	c.DeferredDue = now
	return Batch{Deferred: []*Container{c}}
}
