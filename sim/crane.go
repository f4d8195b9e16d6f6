package sim

import "fmt"

// CraneState is the phase of the crane's work cycle.
type CraneState int

const (
	// Idle: no job in hand, waiting for the queue.
	Idle CraneState = iota
	// Restoring: moving empty towards the pickup point of the next job.
	Restoring
	// ToStack: carrying a storage container to its slot.
	ToStack
	// ToVehicle: carrying a retrieved container to its transfer point.
	ToVehicle
)

var craneStateNames = [...]string{"idle", "restoring", "to_stack", "to_vehicle"}

func (s CraneState) String() string {
	if int(s) < len(craneStateNames) {
		return craneStateNames[s]
	}
	return fmt.Sprintf("CraneState(%d)", int(s))
}

// Crane is the single resource of the block. Job is the container being
// served, set from StartRestoring until the crane is idle again; between a
// drop-off and the following StartIdling it is the container just released.
type Crane struct {
	State    CraneState
	Position Coord
	Job      *Container

	idleSince int64 // tick the current idle period started
	idleAccum int64 // idle ticks since the measurement origin, current period excluded
}

// Carried returns the container on the spreader, or nil.
func (c *Crane) Carried() *Container {
	if c.Job != nil && c.Job.Location == Carried {
		return c.Job
	}
	return nil
}

// Busy reports whether the crane is in any non-idle phase.
func (c *Crane) Busy() bool {
	return c.State != Idle
}
