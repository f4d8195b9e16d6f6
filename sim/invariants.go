package sim

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies the structural invariants of the current state:
// stack capacity and group homogeneity, the crane/job consistency, and that
// every container sits in exactly one physical place matching its Location.
// It returns all violations joined, or nil.
func (sim *Simulator) CheckInvariants() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	place := make(map[*Container]string)
	claim := func(c *Container, where string) {
		if prev, ok := place[c]; ok {
			fail("%s is both %s and %s", c, prev, where)
			return
		}
		place[c] = where
	}

	for i := 0; i < sim.Yard.Slots(); i++ {
		slot := sim.Yard.SlotAt(i)
		stack := sim.Yard.StackAt(i)
		if len(stack) > sim.Yard.Z {
			fail("stack %s holds %d containers (max %d)", slot, len(stack), sim.Yard.Z)
		}
		for _, c := range stack {
			claim(c, "stored at "+slot.String())
			if c.Location != Stored {
				fail("%s on stack %s has location %s", c, slot, c.Location)
			}
			if c.Slot != slot {
				fail("%s on stack %s records slot %s", c, slot, c.Slot)
			}
			if c.Group != stack[0].Group {
				fail("stack %s mixes groups %d and %d", slot, stack[0].Group, c.Group)
			}
		}
	}

	queued := make(map[*Container]bool)
	for _, c := range sim.Queue.Items() {
		if queued[c] {
			fail("%s is queued twice", c)
		}
		queued[c] = true
		if !c.Slot.IsSlot() {
			fail("queued %s has no slot", c)
		}
		switch c.Op.Direction {
		case Store:
			claim(c, "pending storage")
			if c.Location != Pending {
				fail("queued storage %s has location %s", c, c.Location)
			}
		case Retrieve:
			if c.Location != Stored {
				fail("queued retrieval %s has location %s", c, c.Location)
			}
		}
	}

	cr := &sim.Crane
	switch cr.State {
	case Idle:
		if cr.Job != nil {
			fail("idle crane holds %s", cr.Job)
		}
	case Restoring:
		if cr.Job == nil {
			fail("restoring crane has no job")
		} else if !queued[cr.Job] {
			fail("restoring crane job %s is not queued", cr.Job)
		}
	case ToStack, ToVehicle:
		released := Stored
		if cr.State == ToVehicle {
			released = Archived
		}
		switch {
		case cr.Job == nil:
			fail("crane in state %s has no job", cr.State)
		case cr.Job.Location == Carried:
			claim(cr.Job, "carried")
		case cr.Job.Location != released:
			fail("crane in state %s holds %s with location %s", cr.State, cr.Job, cr.Job.Location)
		}
	}

	for _, c := range sim.Metrics.Archive {
		claim(c, "archived")
		if c.Location != Archived {
			fail("archived %s has location %s", c, c.Location)
		}
		if !(c.Arrival <= c.Departure && c.LeadTime == c.Departure-c.Arrival) {
			fail("archived %s has inconsistent times (arrival %d, departure %d, lead %d)", c, c.Arrival, c.Departure, c.LeadTime)
		}
		if c.YardEntry != NotSet && c.YardEntry < c.Arrival {
			fail("archived %s entered the yard before arriving", c)
		}
		if c.YardEntry != NotSet && !(c.YardEntry <= c.YardExit && c.YardExit <= c.Departure) {
			fail("archived %s left the yard before entering it", c)
		}
	}
	for _, c := range sim.Metrics.Discarded {
		claim(c, "discarded")
		if c.Location != Discarded {
			fail("discarded %s has location %s", c, c.Location)
		}
	}

	for _, u := range sim.Metrics.Utilization {
		if u < 0 || u > 1 {
			fail("utilization sample %v outside [0,1]", u)
		}
	}
	if sim.Metrics.Occupancy.Count() != sim.Yard.Count() {
		fail("occupancy counter %d differs from block count %d", sim.Metrics.Occupancy.Count(), sim.Yard.Count())
	}
	return errors.Join(errs...)
}
