package sim

import "fmt"

// Vessel is one service in the schedule together with the part of the block
// and the stacking groups reserved for it. Immutable for a run.
type Vessel struct {
	Index        int
	Interval     int64 // ticks until the next vessel in the rotation calls
	ImportGroups []int
	ExportGroups []int
	FirstBay     int // 1-based y of the first bay of the sub-block
	LastBay      int // inclusive
	FirstSlot    int // slot index of (1, FirstBay)
	LastSlot     int // slot index of (X, LastBay), inclusive
}

// Contains reports whether the slot lies inside the vessel's sub-block.
func (v *Vessel) Contains(c Coord) bool {
	return c.Y >= v.FirstBay && c.Y <= v.LastBay
}

// Topology is the static partition of bays and groups across vessels.
// Vessel v owns bays [v*Y/n+1, (v+1)*Y/n] across the whole width of the block
// and groups [v*G/n+1, (v+1)*G/n]; the first groups of each range are imports.
type Topology struct {
	Vessels []Vessel
	groupTo map[int]int
	importG map[int]bool
}

// NewTopology partitions the block described by cfg. cfg must be validated.
func NewTopology(cfg *Config) *Topology {
	n := cfg.Vessels()
	bays := cfg.Yard.Y / n
	perVessel := cfg.Topology.Groups / n
	imports := importGroupsPerVessel(cfg.Topology.ImportProportion, perVessel)

	t := &Topology{
		Vessels: make([]Vessel, n),
		groupTo: make(map[int]int, cfg.Topology.Groups),
		importG: make(map[int]bool, imports*n),
	}
	for v := 0; v < n; v++ {
		first := v*perVessel + 1
		ves := Vessel{
			Index:    v,
			Interval: HoursToTicks(cfg.Traffic.VesselIntervals[v]),
			FirstBay: v*bays + 1,
			LastBay:  (v + 1) * bays,
		}
		ves.FirstSlot = (ves.FirstBay - 1) * cfg.Yard.X
		ves.LastSlot = ves.LastBay*cfg.Yard.X - 1
		for g := first; g < first+perVessel; g++ {
			if g < first+imports {
				ves.ImportGroups = append(ves.ImportGroups, g)
				t.importG[g] = true
			} else {
				ves.ExportGroups = append(ves.ExportGroups, g)
			}
			t.groupTo[g] = v
		}
		t.Vessels[v] = ves
	}
	return t
}

// VesselOfGroup returns the vessel index owning the group.
func (t *Topology) VesselOfGroup(group int) (int, bool) {
	v, ok := t.groupTo[group]
	return v, ok
}

// ClassOfGroup returns Import for import groups and Export otherwise.
func (t *Topology) ClassOfGroup(group int) CargoClass {
	if t.importG[group] {
		return Import
	}
	return Export
}

func (t *Topology) String() string {
	return fmt.Sprintf("topology{vessels=%d groups=%d}", len(t.Vessels), len(t.groupTo))
}
