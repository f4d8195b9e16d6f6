package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// === Traffic sources ===

// VesselArrivalEvent is vessel v calling at the terminal. It triggers the
// vessel's job and schedules the next vessel of the rotation.
type VesselArrivalEvent struct {
	time   int64
	Vessel int
}

func (e *VesselArrivalEvent) Timestamp() int64 { return e.time }

func (e *VesselArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< VesselArrival: vessel %d at %d ticks", e.Vessel, e.time)
	sim.Schedule(&JobArrivalEvent{time: e.time, Request: JobRequest{Kind: VesselCall, Vessel: e.Vessel}})

	ves := &sim.Topology.Vessels[e.Vessel]
	next := (e.Vessel + 1) % len(sim.Topology.Vessels)
	sim.Schedule(&VesselArrivalEvent{time: e.time + ves.Interval, Vessel: next})
}

// ContainerArrivalEvent is one export or transshipment box reaching the
// terminal. It reschedules itself with a fresh inter-arrival gap.
type ContainerArrivalEvent struct {
	time int64
}

func (e *ContainerArrivalEvent) Timestamp() int64 { return e.time }

func (e *ContainerArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< ContainerArrival at %d ticks", e.time)
	sim.Schedule(&JobArrivalEvent{time: e.time, Request: JobRequest{Kind: ExogenousArrival}})
	sim.Schedule(&ContainerArrivalEvent{time: e.time + sim.arrivals.SampleIAT(sim.rng)})
}

// ContainerDepartureEvent is one import box being ordered out by land.
// It reschedules itself with a fresh inter-departure gap.
type ContainerDepartureEvent struct {
	time int64
}

func (e *ContainerDepartureEvent) Timestamp() int64 { return e.time }

func (e *ContainerDepartureEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< ContainerDeparture at %d ticks", e.time)
	sim.Schedule(&JobArrivalEvent{time: e.time, Request: JobRequest{Kind: ExogenousDeparture}})
	sim.Schedule(&ContainerDepartureEvent{time: e.time + sim.departures.SampleIAT(sim.rng)})
}

// JobArrivalEvent generates, allocates and sequences one batch of work.
type JobArrivalEvent struct {
	time    int64
	Request JobRequest
}

func (e *JobArrivalEvent) Timestamp() int64 { return e.time }

func (e *JobArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< JobArrival: %s at %d ticks", e.Request, e.time)
	sim.HandleJobArrival(e.Request)
}

// === Crane cycle ===

// StartRestoringEvent moves the idle crane towards the pickup point of the queue head.
type StartRestoringEvent struct {
	time int64
}

func (e *StartRestoringEvent) Timestamp() int64 { return e.time }

func (e *StartRestoringEvent) Execute(sim *Simulator) {
	sim.StartRestoring()
}

// PickupAtVehicleEvent is the crane grabbing a storage box at the transfer point.
type PickupAtVehicleEvent struct {
	time      int64
	Container *Container
}

func (e *PickupAtVehicleEvent) Timestamp() int64 { return e.time }

func (e *PickupAtVehicleEvent) Execute(sim *Simulator) {
	sim.PickupAtVehicle(e.Container)
}

// DropoffAtStackEvent is the crane releasing a storage box onto its stack.
type DropoffAtStackEvent struct {
	time      int64
	Container *Container
}

func (e *DropoffAtStackEvent) Timestamp() int64 { return e.time }

func (e *DropoffAtStackEvent) Execute(sim *Simulator) {
	sim.DropoffAtStack(e.Container)
}

// PickupAtStackEvent is the crane lifting a retrieval box off its stack.
type PickupAtStackEvent struct {
	time      int64
	Container *Container
}

func (e *PickupAtStackEvent) Timestamp() int64 { return e.time }

func (e *PickupAtStackEvent) Execute(sim *Simulator) {
	sim.PickupAtStack(e.Container)
}

// DropoffAtVehicleEvent is the crane handing a retrieval box to its vehicle.
type DropoffAtVehicleEvent struct {
	time      int64
	Container *Container
}

func (e *DropoffAtVehicleEvent) Timestamp() int64 { return e.time }

func (e *DropoffAtVehicleEvent) Execute(sim *Simulator) {
	sim.DropoffAtVehicle(e.Container)
}

// StartIdlingEvent returns the crane to Idle and samples utilization.
type StartIdlingEvent struct {
	time int64
}

func (e *StartIdlingEvent) Timestamp() int64 { return e.time }

func (e *StartIdlingEvent) Execute(sim *Simulator) {
	sim.StartIdling()
}
