package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a two-sided Student-t confidence interval on a sample mean.
type Interval struct {
	N         int     `json:"n"`
	Level     float64 `json:"level"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	HalfWidth float64 `json:"half_width"`
}

// Low is the lower bound of the interval.
func (iv Interval) Low() float64 { return iv.Mean - iv.HalfWidth }

// High is the upper bound of the interval.
func (iv Interval) High() float64 { return iv.Mean + iv.HalfWidth }

func (iv Interval) String() string {
	return fmt.Sprintf("%.4f ± %.4f (%.0f%%, n=%d)", iv.Mean, iv.HalfWidth, 100*iv.Level, iv.N)
}

// tQuantile returns the two-sided critical value of Student's t with n-1 degrees of freedom.
func tQuantile(n int, level float64) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	return t.Quantile(1 - (1-level)/2)
}

// ConfidenceInterval summarizes independent observations xs at the given
// confidence level. With fewer than two observations the half-width is +Inf.
func ConfidenceInterval(xs []float64, level float64) Interval {
	iv := Interval{N: len(xs), Level: level}
	switch len(xs) {
	case 0:
		iv.HalfWidth = math.Inf(1)
		return iv
	case 1:
		iv.Mean = xs[0]
		iv.HalfWidth = math.Inf(1)
		return iv
	}
	iv.Mean, iv.StdDev = stat.MeanStdDev(xs, nil)
	iv.HalfWidth = tQuantile(len(xs), level) * iv.StdDev / math.Sqrt(float64(len(xs)))
	return iv
}

// RequiredReplications estimates how many replications bring the half-width
// of the interval down to epsilon, from the spread of a pilot sample xs.
// It returns 0 when xs has fewer than two observations.
func RequiredReplications(xs []float64, level, epsilon float64) int {
	if len(xs) < 2 || epsilon <= 0 {
		return 0
	}
	_, sd := stat.MeanStdDev(xs, nil)
	r := tQuantile(len(xs), level) * sd / epsilon
	return int(math.Ceil(r * r))
}
