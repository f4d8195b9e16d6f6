package workload

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// CountSampler draws the number of boxes handled in one vessel call.
type CountSampler interface {
	SampleCount(rng *rand.Rand) int
}

// PoissonCountSampler draws Poisson-distributed counts.
type PoissonCountSampler struct {
	mean float64
}

func (s *PoissonCountSampler) SampleCount(rng *rand.Rand) int {
	d := distuv.Poisson{Lambda: s.mean, Src: rng}
	return int(d.Rand())
}

// EmpiricalCountSampler samples from an empirical probability mass function
// using inverse CDF via binary search.
type EmpiricalCountSampler struct {
	values []int     // sorted counts
	cdf    []float64 // cumulative probabilities (same length as values)
}

// NewEmpiricalCountSampler creates a sampler from a PMF map (count → probability).
// Automatically normalizes probabilities if they don't sum to 1.0.
func NewEmpiricalCountSampler(pmf map[int]float64) *EmpiricalCountSampler {
	keys := make([]int, 0, len(pmf))
	for k := range pmf {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	totalProb := 0.0
	for _, k := range keys {
		totalProb += pmf[k]
	}

	values := make([]int, 0, len(keys))
	cdf := make([]float64, 0, len(keys))
	cumulative := 0.0
	for _, k := range keys {
		p := pmf[k]
		if p <= 0 {
			continue // skip zero or negative probabilities
		}
		cumulative += p / totalProb
		values = append(values, k)
		cdf = append(cdf, cumulative)
	}
	// Ensure last CDF entry is exactly 1.0
	if len(cdf) > 0 {
		cdf[len(cdf)-1] = 1.0
	}

	return &EmpiricalCountSampler{values: values, cdf: cdf}
}

func (s *EmpiricalCountSampler) SampleCount(rng *rand.Rand) int {
	if len(s.values) == 0 {
		return 0
	}
	if len(s.values) == 1 {
		return s.values[0]
	}
	u := rng.Float64()
	idx := sort.SearchFloat64s(s.cdf, u)
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	}
	return s.values[idx]
}

// ConstantCountSampler always returns the same count and never consumes
// from the stream. Used for scripted scenarios.
type ConstantCountSampler struct {
	value int
}

func (s *ConstantCountSampler) SampleCount(_ *rand.Rand) int {
	return s.value
}

// NewCountSampler creates a CountSampler from a validated CountSpec.
func NewCountSampler(spec CountSpec) (CountSampler, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Type {
	case "poisson":
		return &PoissonCountSampler{mean: spec.Mean}, nil
	case "constant":
		return &ConstantCountSampler{value: spec.Value}, nil
	case "empirical":
		return NewEmpiricalCountSampler(spec.PMF), nil
	default:
		return nil, fmt.Errorf("unhandled count distribution %q", spec.Type)
	}
}
