package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// MaxOptimizerLegs bounds the window the exact optimizer accepts.
// Memory and time grow as 2^n * n².
const MaxOptimizerLegs = 12

// ErrWindowTooLarge is returned when a window exceeds the optimizer's bound.
var ErrWindowTooLarge = errors.New("window too large for exact optimization")

// Leg is one crane job: an empty move to Pickup, then a loaded move to Dropoff.
type Leg struct {
	Pickup  Coord
	Dropoff Coord
}

// CostFunc returns the travel time in seconds between two points.
type CostFunc func(from, to Coord) float64

// RouteOptimizer reorders a bounded window of jobs to shorten the closed
// crane tour through them. A job's pickup always immediately precedes its
// own drop-off. The returned order is a permutation of leg indices that
// starts with 0. Callers fall back to the input order on any error.
type RouteOptimizer interface {
	Reorder(ctx context.Context, legs []Leg, cost CostFunc) ([]int, error)
}

// HeldKarpOptimizer solves the window exactly by dynamic programming over
// subsets, anchored at the first leg. It honours ctx cancellation.
type HeldKarpOptimizer struct {
	MaxLegs int // 0 means MaxOptimizerLegs
}

func (o *HeldKarpOptimizer) Reorder(ctx context.Context, legs []Leg, cost CostFunc) ([]int, error) {
	n := len(legs)
	limit := o.MaxLegs
	if limit <= 0 || limit > MaxOptimizerLegs {
		limit = MaxOptimizerLegs
	}
	if n > limit {
		return nil, fmt.Errorf("%d legs (max %d): %w", n, limit, ErrWindowTooLarge)
	}
	if n <= 2 {
		return identity(n), nil
	}

	// link[i][j]: empty move from the drop-off of i to the pickup of j.
	link := make([][]float64, n)
	for i := range link {
		link[i] = make([]float64, n)
		for j := range link[i] {
			if i != j {
				link[i][j] = cost(legs[i].Dropoff, legs[j].Pickup)
			}
		}
	}

	// Subsets of legs 1..n-1, bit k-1 for leg k.
	m := n - 1
	full := 1<<m - 1
	dp := make([][]float64, 1<<m)
	parent := make([][]int8, 1<<m)
	for mask := range dp {
		dp[mask] = make([]float64, n)
		parent[mask] = make([]int8, n)
		for j := range dp[mask] {
			dp[mask][j] = math.Inf(1)
			parent[mask][j] = -1
		}
	}
	for k := 1; k < n; k++ {
		dp[1<<(k-1)][k] = link[0][k]
	}

	for mask := 1; mask <= full; mask++ {
		if mask&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := 1; j < n; j++ {
			if mask&(1<<(j-1)) == 0 || math.IsInf(dp[mask][j], 1) {
				continue
			}
			for k := 1; k < n; k++ {
				bit := 1 << (k - 1)
				if mask&bit != 0 {
					continue
				}
				if c := dp[mask][j] + link[j][k]; c < dp[mask|bit][k] {
					dp[mask|bit][k] = c
					parent[mask|bit][k] = int8(j)
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	last, best := -1, math.Inf(1)
	for j := 1; j < n; j++ {
		if c := dp[full][j] + link[j][0]; c < best {
			last, best = j, c
		}
	}

	order := make([]int, n)
	mask := full
	for pos := n - 1; pos >= 1; pos-- {
		order[pos] = last
		prev := int(parent[mask][last])
		mask &^= 1 << (last - 1)
		last = prev
	}
	order[0] = 0
	return order, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// TourCost is the closed tour time of legs visited in order, loaded moves included.
func TourCost(legs []Leg, order []int, cost CostFunc) float64 {
	total := 0.0
	for i, idx := range order {
		total += cost(legs[idx].Pickup, legs[idx].Dropoff)
		next := order[(i+1)%len(order)]
		total += cost(legs[idx].Dropoff, legs[next].Pickup)
	}
	return total
}

// validPermutation reports whether order is a permutation of [0,n) starting at 0.
func validPermutation(order []int, n int) bool {
	if len(order) != n || n == 0 || order[0] != 0 {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
