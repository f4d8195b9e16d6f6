package sim

import (
	"fmt"
	"slices"
)

// Yard is the block: X*Y ground slots, each an ordered stack bounded by Z.
// Slots are indexed x first, then y: index = (y-1)*X + (x-1), so a vessel's
// bays form one contiguous index range.
type Yard struct {
	X, Y, Z int
	stacks  [][]*Container
}

// NewYard creates an empty block.
func NewYard(x, y, z int) *Yard {
	return &Yard{X: x, Y: y, Z: z, stacks: make([][]*Container, x*y)}
}

// Slots returns the number of ground slots.
func (yd *Yard) Slots() int { return len(yd.stacks) }

// Index returns the slot index of c. Panics if c is outside the block.
func (yd *Yard) Index(c Coord) int {
	if !yd.Contains(c) {
		panic(fmt.Sprintf("slot %s outside %dx%d block", c, yd.X, yd.Y))
	}
	return (c.Y-1)*yd.X + (c.X - 1)
}

// SlotAt is the inverse of Index.
func (yd *Yard) SlotAt(i int) Coord {
	return Coord{X: i%yd.X + 1, Y: i/yd.X + 1}
}

// Contains reports whether c is a slot of the block.
func (yd *Yard) Contains(c Coord) bool {
	return c.X >= 1 && c.X <= yd.X && c.Y >= 1 && c.Y <= yd.Y
}

// Stack returns the occupants of c, bottom first.
// The returned slice is the yard's internal storage and MUST NOT be modified.
func (yd *Yard) Stack(c Coord) []*Container {
	return yd.stacks[yd.Index(c)]
}

// StackAt is Stack addressed by slot index.
func (yd *Yard) StackAt(i int) []*Container {
	return yd.stacks[i]
}

// Height returns the number of containers on c.
func (yd *Yard) Height(c Coord) int {
	return len(yd.stacks[yd.Index(c)])
}

// Top returns the most recently added container of c, or nil.
func (yd *Yard) Top(c Coord) *Container {
	s := yd.stacks[yd.Index(c)]
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Push puts ct on top of c. Exceeding the maximum height is an allocator
// defect and panics.
func (yd *Yard) Push(c Coord, ct *Container) {
	i := yd.Index(c)
	if len(yd.stacks[i]) >= yd.Z {
		panic(fmt.Sprintf("Push: stack %s already holds %d containers (max %d), cannot add %s", c, len(yd.stacks[i]), yd.Z, ct))
	}
	yd.stacks[i] = append(yd.stacks[i], ct)
}

// Remove takes ct out of the stack at c, wherever it sits. Panics if ct is not there.
func (yd *Yard) Remove(c Coord, ct *Container) {
	i := yd.Index(c)
	pos := slices.Index(yd.stacks[i], ct)
	if pos < 0 {
		panic(fmt.Sprintf("Remove: %s is not on stack %s", ct, c))
	}
	yd.stacks[i] = slices.Delete(yd.stacks[i], pos, pos+1)
}

// Count returns the number of containers in the block.
func (yd *Yard) Count() int {
	n := 0
	for _, s := range yd.stacks {
		n += len(s)
	}
	return n
}

// Clone copies the stack structure. Containers are shared, not copied.
func (yd *Yard) Clone() *Yard {
	c := &Yard{X: yd.X, Y: yd.Y, Z: yd.Z, stacks: make([][]*Container, len(yd.stacks))}
	for i, s := range yd.stacks {
		if len(s) > 0 {
			c.stacks[i] = slices.Clone(s)
		}
	}
	return c
}

// Snapshot returns container IDs per slot index, bottom first.
func (yd *Yard) Snapshot() [][]uint64 {
	out := make([][]uint64, len(yd.stacks))
	for i, s := range yd.stacks {
		ids := make([]uint64, len(s))
		for j, ct := range s {
			ids[j] = ct.ID
		}
		out[i] = ids
	}
	return out
}

// === GroupIndex ===

// GroupIndex maps a stacking group to the slots whose bottom container belongs
// to it. It is derived state: rebuilt from a yard, then extended by the allocator.
type GroupIndex struct {
	slots map[int][]Coord
}

// BuildGroupIndex scans yd x first then y and records each non-empty stack
// under the group of its bottom container.
func BuildGroupIndex(yd *Yard) *GroupIndex {
	g := &GroupIndex{slots: make(map[int][]Coord)}
	for x := 1; x <= yd.X; x++ {
		for y := 1; y <= yd.Y; y++ {
			c := Coord{X: x, Y: y}
			if s := yd.Stack(c); len(s) > 0 {
				g.slots[s[0].Group] = append(g.slots[s[0].Group], c)
			}
		}
	}
	return g
}

// Slots returns the stacks holding the group, in discovery order.
func (g *GroupIndex) Slots(group int) []Coord {
	return g.slots[group]
}

// Has reports whether at least one stack holds the group.
func (g *GroupIndex) Has(group int) bool {
	return len(g.slots[group]) > 0
}

// Add records that c now holds group. Adding a known pair is a no-op.
func (g *GroupIndex) Add(group int, c Coord) {
	if slices.Contains(g.slots[group], c) {
		return
	}
	g.slots[group] = append(g.slots[group], c)
}

// Groups returns the indexed groups in ascending order.
func (g *GroupIndex) Groups() []int {
	out := make([]int, 0, len(g.slots))
	for k, v := range g.slots {
		if len(v) > 0 {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// === Projection ===

// Projection is the block as it will look once every queued job and the job
// on the crane have been served. Allocation reads and reserves against it so
// containers of one batch never compete for the same capacity.
//
// Capacity is tracked separately as the committed height of each stack:
// physical occupants plus pending storages, ignoring queued retrievals, so a
// reservation stays valid whatever order the crane serves the queue in.
type Projection struct {
	Yard      *Yard
	Groups    *GroupIndex
	committed []int
}

// Project rebuilds the projection from the physical block, the pending queue
// and the container currently carried by the crane (may be nil).
// Storage jobs with a slot are added to their stack; retrieval jobs are removed.
func Project(physical *Yard, queue []*Container, carried *Container) *Projection {
	p := physical.Clone()
	committed := make([]int, p.Slots())
	for i := range committed {
		committed[i] = len(p.stacks[i])
	}
	if carried != nil && carried.Op.Direction == Store {
		p.Push(carried.Slot, carried)
		committed[p.Index(carried.Slot)]++
	}
	for _, ct := range queue {
		if ct.Slot.IsSlot() && ct.Op.Direction == Retrieve {
			p.Remove(ct.Slot, ct)
		}
	}
	for _, ct := range queue {
		if ct.Slot.IsSlot() && ct.Op.Direction == Store {
			p.Push(ct.Slot, ct)
			committed[p.Index(ct.Slot)]++
		}
	}
	return &Projection{Yard: p, Groups: BuildGroupIndex(p), committed: committed}
}

// Free returns how many more containers may be committed to c.
func (p *Projection) Free(c Coord) int {
	return p.Yard.Z - p.committed[p.Yard.Index(c)]
}

// Empty reports whether nothing is, or will be, stacked on c.
func (p *Projection) Empty(c Coord) bool {
	return p.committed[p.Yard.Index(c)] == 0
}

// Reserve records a successful allocation of ct to c.
func (p *Projection) Reserve(c Coord, ct *Container) {
	if p.Free(c) <= 0 {
		panic(fmt.Sprintf("Reserve: stack %s has no free capacity for %s", c, ct))
	}
	p.Yard.Push(c, ct)
	p.committed[p.Yard.Index(c)]++
	p.Groups.Add(ct.Group, c)
}
