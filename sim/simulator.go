// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/jbbrd/DES-for-YB-operations/sim/trace"
	"github.com/jbbrd/DES-for-YB-operations/sim/workload"
)

// Simulator is the core object that holds simulation time, system state, and the event loop.
// It is single-threaded: every field is owned by the goroutine calling Run.
type Simulator struct {
	Clock int64
	// EventQueue has all the simulator events, like vessel calls and crane moves
	EventQueue EventQueue
	seq        uint64

	Config   Config
	Topology *Topology
	Travel   TravelModel

	// Yard is the physical block; Projection the block once every queued job is served.
	Yard       *Yard
	Projection *Projection
	// Queue holds the jobs the crane has not finished picking up.
	Queue *PendingQueue
	Crane Crane

	Generator *JobGenerator
	Allocator *Allocator
	Sequencer QueueSequencer

	Metrics  *Metrics
	Trace    *trace.SimulationTrace // nil unless enabled
	recorder MetricsRecorder

	rng        *rand.Rand
	arrivals   workload.ArrivalSampler
	departures workload.ArrivalSampler

	// pendingStart is the scheduled StartRestoring, if any. At most one may be in flight.
	pendingStart Event
	// measureStart is the origin of the utilization measurement.
	measureStart int64
}

// SimulatorOption customises Simulator construction.
type SimulatorOption func(*Simulator)

// WithMetricsRecorder attaches a recorder that receives KPI observations.
func WithMetricsRecorder(r MetricsRecorder) SimulatorOption {
	return func(s *Simulator) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTrace attaches a decision trace shared by the allocator and the sequencer.
func WithTrace(tr *trace.SimulationTrace) SimulatorOption {
	return func(s *Simulator) {
		s.Trace = tr
	}
}

// NewSimulator validates cfg, loads the initial yard and schedules the
// traffic sources. It never returns a partially built simulator.
func NewSimulator(cfg Config, opts ...SimulatorOption) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	imports, err := workload.NewCountSampler(cfg.Traffic.ImportCount)
	if err != nil {
		return nil, fmt.Errorf("import count: %v: %w", err, ErrInvalidConfig)
	}

	s := &Simulator{
		Config:     cfg,
		Topology:   NewTopology(&cfg),
		Travel:     NewTravelModel(cfg.Crane),
		Yard:       NewYard(cfg.Yard.X, cfg.Yard.Y, cfg.Yard.Z),
		Queue:      &PendingQueue{},
		EventQueue: make(EventQueue, 0),
		recorder:   noopRecorder{},
		rng:        NewStream(NewSimulationKey(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(s)
	}

	nextID, err := s.loadInitialYard(cfg.InitialYard)
	if err != nil {
		return nil, err
	}
	s.Metrics = NewMetrics(s.Yard.Count())
	s.recorder.SetYardOccupancy(s.Yard.Count())

	s.Generator = NewJobGenerator(s.Topology, imports, cfg.Traffic.TransshipmentProportion, nextID)
	strategy := NewAllocationStrategy(cfg.Policy.Allocation, cfg.Policy.RandomRetries, s.Travel)
	s.Allocator = NewAllocator(cfg.Policy.Allocation, strategy, s.Topology, s.Travel, s.Trace)
	s.Sequencer = NewSequencer(cfg.Policy, s.Travel, s.Trace)
	s.reconcile()

	if !cfg.Traffic.Manual {
		s.scheduleTraffic()
	}
	logrus.Infof("Simulator ready: %dx%dx%d block, %s, %d containers preloaded, policy %s/%s",
		cfg.Yard.X, cfg.Yard.Y, cfg.Yard.Z, s.Topology, s.Yard.Count(),
		s.Allocator.name, sequencerName(cfg.Policy.Sequencer))
	return s, nil
}

func sequencerName(name string) string {
	if name == "" {
		return "due-time"
	}
	return name
}

// scheduleTraffic seeds the vessel rotation and the exogenous processes.
// A zero rate disables the corresponding process.
func (sim *Simulator) scheduleTraffic() {
	t := sim.Config.Traffic
	sim.Schedule(&VesselArrivalEvent{time: t.FirstVessel.Microseconds(), Vessel: 0})
	if t.ArrivalRate > 0 {
		sim.arrivals = workload.NewArrivalSampler(t.ArrivalProcess, t.ArrivalRate/float64(TicksPerHour))
		sim.Schedule(&ContainerArrivalEvent{time: sim.arrivals.SampleIAT(sim.rng)})
	}
	if t.DepartureRate > 0 {
		sim.departures = workload.NewArrivalSampler(t.DepartureProcess, t.DepartureRate/float64(TicksPerHour))
		sim.Schedule(&ContainerDepartureEvent{time: sim.departures.SampleIAT(sim.rng)})
	}
}

// loadInitialYard copies the warm-start stacks into the block, re-based to
// clock 0, and returns the first free container ID.
func (sim *Simulator) loadInitialYard(stacks [][]Container) (uint64, error) {
	seen := make(map[uint64]bool)
	var nextID uint64
	for i, stack := range stacks {
		if len(stack) == 0 {
			continue
		}
		slot := sim.Yard.SlotAt(i)
		if len(stack) > sim.Yard.Z {
			return 0, invalid("initial stack %s holds %d containers (max %d)", slot, len(stack), sim.Yard.Z)
		}
		group := stack[0].Group
		v, ok := sim.Topology.VesselOfGroup(group)
		if !ok {
			return 0, invalid("initial stack %s: unknown group %d", slot, group)
		}
		if !sim.Topology.Vessels[v].Contains(slot) {
			return 0, invalid("initial stack %s: group %d belongs to vessel %d, outside its bays", slot, group, v)
		}
		for _, src := range stack {
			if src.Group != group {
				return 0, invalid("initial stack %s mixes groups %d and %d", slot, group, src.Group)
			}
			if seen[src.ID] {
				return 0, invalid("initial yard holds container %d twice", src.ID)
			}
			seen[src.ID] = true
			nextID = max(nextID, src.ID+1)

			c := NewContainer(src.ID, group, v, sim.Topology.ClassOfGroup(group), Operation{Direction: Store, Side: src.Op.Side}, 0)
			c.Slot = slot
			c.YardEntry = 0
			c.Location = Stored
			sim.Yard.Push(slot, c)
		}
	}
	return nextID, nil
}

// Schedule pushes an event into the simulator's EventQueue.
// Events at the same tick run in the order they were scheduled.
func (sim *Simulator) Schedule(ev Event) {
	if ev.Timestamp() < sim.Clock {
		panic(fmt.Sprintf("Schedule: %T at %d is before the clock %d", ev, ev.Timestamp(), sim.Clock))
	}
	heap.Push(&sim.EventQueue, queuedEvent{ev: ev, seq: sim.seq})
	sim.seq++
}

// RunUntil executes every event stamped at or before until, then leaves the clock at until.
func (sim *Simulator) RunUntil(until int64) {
	for len(sim.EventQueue) > 0 {
		if sim.EventQueue.Peek().Timestamp() > until {
			break
		}
		// get the next event to be simulated
		ev := sim.EventQueue.PopNext()
		// advance the clock
		sim.Clock = ev.Timestamp()
		logrus.Debugf("[tick %07d] Executing %T", sim.Clock, ev)
		// process the event
		ev.Execute(sim)
	}
	sim.Clock = max(sim.Clock, until)
}

// Run advances the simulation by d ticks.
func (sim *Simulator) Run(d int64) {
	sim.RunUntil(sim.Clock + d)
	logrus.Debugf("[tick %07d] Run paused", sim.Clock)
}

// WarmUp runs for d ticks, then discards the KPIs gathered so far.
// Yard, queue, crane and discard list carry over.
func (sim *Simulator) WarmUp(d int64) {
	sim.Run(d)
	sim.ResetMeasurement()
	logrus.Infof("[tick %07d] Warm-up done, %d containers in the block", sim.Clock, sim.Yard.Count())
}

// ResetMeasurement moves the measurement origin to the current clock.
func (sim *Simulator) ResetMeasurement() {
	sim.Metrics.Reset(sim.Clock)
	sim.measureStart = sim.Clock
	sim.Crane.idleAccum = 0
	if !sim.Crane.Busy() {
		sim.Crane.idleSince = sim.Clock
	}
}

// InjectJob schedules a job arrival at the current clock.
func (sim *Simulator) InjectJob(req JobRequest) {
	if req.Kind == VesselCall && (req.Vessel < 0 || req.Vessel >= len(sim.Topology.Vessels)) {
		panic(fmt.Sprintf("InjectJob: vessel %d out of range", req.Vessel))
	}
	sim.Schedule(&JobArrivalEvent{time: sim.Clock, Request: req})
}

// FinalYard returns value copies of the block content, one list per slot
// index, suitable for Config.InitialYard of a later run.
func (sim *Simulator) FinalYard() [][]Container {
	out := make([][]Container, sim.Yard.Slots())
	for i := range out {
		for _, c := range sim.Yard.StackAt(i) {
			out[i] = append(out[i], *c)
		}
	}
	return out
}

// reconcile rebuilds the projected view from the physical state.
func (sim *Simulator) reconcile() {
	sim.Projection = Project(sim.Yard, sim.Queue.Items(), sim.Crane.Carried())
}

func (sim *Simulator) sequence() {
	sim.Queue.Reorder(func(cs []*Container) {
		sim.Sequencer.Sequence(cs, sim.Clock)
	})
}

// HandleJobArrival generates the batch of req, allocates a slot to every
// container still without one and re-sequences the queue. Containers no slot
// can be found for are discarded.
func (sim *Simulator) HandleJobArrival(req JobRequest) {
	sim.reconcile()
	batch := sim.Generator.Generate(req, sim.Projection, sim.Clock, sim.rng)
	for _, c := range batch.Enqueue {
		sim.Queue.Enqueue(c)
	}

	var discarded []*Container
	for _, c := range sim.Queue.Items() {
		if c.Slot.IsSlot() {
			continue
		}
		a := sim.Allocator.Allocate(c, sim.Projection, sim.Clock, sim.rng)
		if a.Failed() {
			discarded = append(discarded, c)
			continue
		}
		c.Slot = a.Slot
	}
	for _, c := range discarded {
		sim.Queue.Remove(c)
		c.Slot = AllocationFailed
		c.Location = Discarded
		sim.Metrics.Discarded = append(sim.Metrics.Discarded, c)
		sim.recorder.IncDiscarded()
	}
	sim.sequence()
	sim.reconcile()

	sim.Metrics.JobArrivals++
	sim.Metrics.ContainerArrivals += batch.Size()
	sim.recorder.IncJobArrival(req.Kind.String(), batch.Size())
	sim.recorder.SetQueueDepth(sim.Queue.Len())
	logrus.Debugf("[tick %07d] %s: %d queued, %d deferred, %d discarded, queue %d",
		sim.Clock, req, len(batch.Enqueue), len(batch.Deferred), len(discarded), sim.Queue.Len())

	sim.tryStart()
}

// tryStart schedules StartRestoring when the crane is idle with work waiting.
func (sim *Simulator) tryStart() {
	if sim.Crane.Busy() || sim.pendingStart != nil || sim.Queue.Len() == 0 {
		return
	}
	ev := &StartRestoringEvent{time: sim.Clock}
	sim.pendingStart = ev
	sim.Schedule(ev)
}

// === Crane state machine ===

// StartRestoring takes the queue head and moves the empty crane to its pickup point.
func (sim *Simulator) StartRestoring() {
	sim.pendingStart = nil
	c := sim.Queue.Peek()
	if sim.Crane.Busy() || c == nil {
		return
	}
	sim.Crane.idleAccum += sim.Clock - sim.Crane.idleSince
	sim.Crane.State = Restoring
	sim.Crane.Job = c

	d := sim.Travel.Restore(sim.Crane.Position, c.PickupPoint())
	sim.recorder.ObserveMove("restoring", d)
	at := sim.Clock + SecondsToTicks(d)
	if c.Op.Direction == Store {
		sim.Schedule(&PickupAtVehicleEvent{time: at, Container: c})
	} else {
		sim.Schedule(&PickupAtStackEvent{time: at, Container: c})
	}
}

// PickupAtVehicle lifts a storage container at its transfer point.
func (sim *Simulator) PickupAtVehicle(c *Container) {
	sim.Crane.Position = c.TransferPoint()
	if !sim.Queue.Remove(c) {
		panic(fmt.Sprintf("PickupAtVehicle: %s is not queued", c))
	}
	c.Location = Carried
	c.Waiting = sim.Clock - c.Arrival
	sim.Crane.State = ToStack
	sim.Metrics.CraneMoves++
	sim.recorder.SetQueueDepth(sim.Queue.Len())

	z := sim.Travel.StackHeight(sim.Yard.Height(c.Slot))
	d := sim.Travel.Stack(sim.Crane.Position, 0, c.Slot, z)
	sim.recorder.ObserveMove("to_stack", d)
	sim.Schedule(&DropoffAtStackEvent{time: sim.Clock + SecondsToTicks(d), Container: c})
}

// DropoffAtStack puts a storage container on its stack. A retrieval ordered
// while it was on its way turns it into a retrieval job right away.
func (sim *Simulator) DropoffAtStack(c *Container) {
	sim.Crane.Position = c.Slot
	sim.Yard.Push(c.Slot, c)
	c.Location = Stored
	c.YardEntry = sim.Clock
	sim.Metrics.CraneMoves++
	sim.Metrics.Occupancy.Observe(sim.Clock, 1)
	sim.recorder.SetYardOccupancy(sim.Yard.Count())

	if c.DeferredDue != NotSet {
		c.Op = Operation{Direction: Retrieve, Side: Land}
		c.Due = c.DeferredDue
		c.DeferredDue = NotSet
		sim.Queue.Enqueue(c)
		sim.sequence()
		sim.recorder.SetQueueDepth(sim.Queue.Len())
	}
	sim.Schedule(&StartIdlingEvent{time: sim.Clock})
}

// PickupAtStack lifts a retrieval container off its stack.
func (sim *Simulator) PickupAtStack(c *Container) {
	sim.Crane.Position = c.Slot
	sim.Yard.Remove(c.Slot, c)
	if !sim.Queue.Remove(c) {
		panic(fmt.Sprintf("PickupAtStack: %s is not queued", c))
	}
	c.Location = Carried
	c.YardExit = sim.Clock
	c.Dwelling = c.YardExit - c.YardEntry
	sim.Crane.State = ToVehicle
	sim.Metrics.CraneMoves++
	sim.Metrics.Occupancy.Observe(sim.Clock, -1)
	sim.recorder.SetYardOccupancy(sim.Yard.Count())
	sim.recorder.SetQueueDepth(sim.Queue.Len())

	z := sim.Travel.StackHeight(sim.Yard.Height(c.Slot))
	d := sim.Travel.Stack(c.Slot, z, c.TransferPoint(), 0)
	sim.recorder.ObserveMove("to_vehicle", d)
	sim.Schedule(&DropoffAtVehicleEvent{time: sim.Clock + SecondsToTicks(d), Container: c})
}

// DropoffAtVehicle hands a retrieved container over and archives it.
func (sim *Simulator) DropoffAtVehicle(c *Container) {
	sim.Crane.Position = c.TransferPoint()
	c.Departure = sim.Clock
	c.LeadTime = c.Departure - c.Arrival
	c.Location = Archived
	sim.Metrics.CraneMoves++
	sim.Metrics.Archive = append(sim.Metrics.Archive, c)
	sim.recorder.ObserveLeadTime(TicksToHours(c.LeadTime))
	sim.Schedule(&StartIdlingEvent{time: sim.Clock})
}

// StartIdling frees the crane, samples utilization and starts the next job if any.
func (sim *Simulator) StartIdling() {
	sim.Crane.State = Idle
	sim.Crane.Job = nil
	sim.Crane.idleSince = sim.Clock

	if u, ok := sim.Utilization(); ok {
		sim.Metrics.Utilization = append(sim.Metrics.Utilization, u)
		sim.recorder.ObserveUtilization(u)
	}
	if sim.Config.RecordYardHistory {
		sim.Metrics.YardHistory = append(sim.Metrics.YardHistory, YardSnapshot{Clock: sim.Clock, Stacks: sim.Yard.Snapshot()})
	}
	sim.recorder.SetQueueDepth(sim.Queue.Len())
	sim.tryStart()
}

// Utilization is the busy share of the time since the measurement origin.
// It reports false when no time has elapsed.
func (sim *Simulator) Utilization() (float64, bool) {
	elapsed := sim.Clock - sim.measureStart
	if elapsed <= 0 {
		return 0, false
	}
	idle := sim.Crane.idleAccum
	if !sim.Crane.Busy() {
		idle += sim.Clock - sim.Crane.idleSince
	}
	u := 1 - float64(idle)/float64(elapsed)
	return min(max(u, 0), 1), true
}

type noopRecorder struct{}

func (noopRecorder) ObserveMove(string, float64)  {}
func (noopRecorder) ObserveUtilization(float64)   {}
func (noopRecorder) ObserveLeadTime(float64)      {}
func (noopRecorder) SetQueueDepth(int)            {}
func (noopRecorder) SetYardOccupancy(int)         {}
func (noopRecorder) IncJobArrival(string, int)    {}
func (noopRecorder) IncDiscarded()                {}
