// Package trace provides decision-trace recording for allocation and
// sequencing policy analysis.
// This package has no dependencies on sim/; it stores plain data types.
package trace

// CandidateSlot captures a counterfactual empty slot the allocator could have
// chosen, with its travel time from the vessel reference point.
type CandidateSlot struct {
	X, Y     int
	Distance float64 // seconds from the reference point
}

// AllocationRecord captures a single storage allocation decision with optional
// counterfactual analysis.
type AllocationRecord struct {
	ContainerID uint64
	Clock       int64
	Group       int
	Vessel      int
	Strategy    string
	X, Y        int  // chosen slot, (-1,-1) on failure
	SharedStack bool // joined an existing stack of the same group
	Failed      bool
	Distance    float64         // seconds from the reference point to the chosen slot
	Candidates  []CandidateSlot // nearest empty slots (nil if k=0 or shared stack)
	Regret      float64         // Distance - nearest candidate distance; 0 if chosen is nearest
}

// SequencingRecord captures one optimizer window of the windowed sequencer.
type SequencingRecord struct {
	Clock       int64
	WindowStart int // queue position of the first job of the window
	Size        int
	Optimized   bool   // the optimizer's order was applied
	Reason      string // fallback reason when not optimized
	CostBefore  float64
	CostAfter   float64
}
