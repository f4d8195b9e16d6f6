package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Random stream ===

// streamName salts the PCG stream so seeds shared with other tools do not
// produce correlated sequences.
const streamName = "yard-crane"

// NewStream returns the single random stream of a run. Every draw of the run
// (traffic gaps, import counts, group picks, allocation) consumes from it in
// causal order.
//
// Thread-safety: NOT thread-safe. Must be used from the simulation goroutine.
func NewStream(key SimulationKey) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(key), uint64(fnv1a64(streamName))))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
