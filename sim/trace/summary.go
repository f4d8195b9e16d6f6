package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAllocations     int
	SharedStackCount     int
	NewStackCount        int
	FailedCount          int
	MeanRegret           float64
	MaxRegret            float64
	StrategyDistribution map[string]int // strategy → count of new stacks opened
	Windows              int
	OptimizedWindows     int
	FallbackWindows      int
	MeanCostSaving       float64 // seconds saved per optimized window
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		StrategyDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAllocations = len(st.Allocations)
	totalRegret := 0.0
	for _, a := range st.Allocations {
		switch {
		case a.Failed:
			summary.FailedCount++
		case a.SharedStack:
			summary.SharedStackCount++
		default:
			summary.NewStackCount++
			summary.StrategyDistribution[a.Strategy]++
			totalRegret += a.Regret
			if a.Regret > summary.MaxRegret {
				summary.MaxRegret = a.Regret
			}
		}
	}
	if summary.NewStackCount > 0 {
		summary.MeanRegret = totalRegret / float64(summary.NewStackCount)
	}

	summary.Windows = len(st.Sequencings)
	saving := 0.0
	for _, s := range st.Sequencings {
		if s.Optimized {
			summary.OptimizedWindows++
			saving += s.CostBefore - s.CostAfter
		} else {
			summary.FallbackWindows++
		}
	}
	if summary.OptimizedWindows > 0 {
		summary.MeanCostSaving = saving / float64(summary.OptimizedWindows)
	}

	return summary
}
