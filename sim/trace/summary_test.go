package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalAllocations != 0 || summary.Windows != 0 {
		t.Error("expected zero counts for nil trace")
	}
	if summary.StrategyDistribution == nil {
		t.Error("expected non-nil strategy distribution")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalAllocations != 0 {
		t.Errorf("expected 0 allocations, got %d", summary.TotalAllocations)
	}
	if summary.SharedStackCount != 0 || summary.NewStackCount != 0 || summary.FailedCount != 0 {
		t.Error("expected 0 shared, new and failed")
	}
	if summary.MeanRegret != 0 || summary.MaxRegret != 0 {
		t.Error("expected 0 regret values")
	}
	if len(summary.StrategyDistribution) != 0 {
		t.Error("expected empty strategy distribution")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with shared, new and failed allocations
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAllocation(AllocationRecord{ContainerID: 1, Strategy: "random", SharedStack: true})
	st.RecordAllocation(AllocationRecord{ContainerID: 2, Strategy: "random"})
	st.RecordAllocation(AllocationRecord{ContainerID: 3, Strategy: "random", Failed: true})
	st.RecordAllocation(AllocationRecord{ContainerID: 4, Strategy: "shortest"})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalAllocations != 4 {
		t.Errorf("expected 4 allocations, got %d", summary.TotalAllocations)
	}
	if summary.SharedStackCount != 1 || summary.NewStackCount != 2 || summary.FailedCount != 1 {
		t.Errorf("got shared=%d new=%d failed=%d, want 1/2/1",
			summary.SharedStackCount, summary.NewStackCount, summary.FailedCount)
	}
	if summary.StrategyDistribution["random"] != 1 || summary.StrategyDistribution["shortest"] != 1 {
		t.Errorf("unexpected strategy distribution %v", summary.StrategyDistribution)
	}
}

func TestSummarize_RegretStatistics_CorrectMeanAndMax(t *testing.T) {
	// GIVEN new-stack allocations with known regrets
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAllocation(AllocationRecord{ContainerID: 1, Regret: 0.1})
	st.RecordAllocation(AllocationRecord{ContainerID: 2, Regret: 0.5})
	st.RecordAllocation(AllocationRecord{ContainerID: 3, Regret: 0.2})

	// WHEN summarized
	summary := Summarize(st)

	// THEN mean regret = (0.1 + 0.5 + 0.2) / 3 ≈ 0.2667
	expectedMean := (0.1 + 0.5 + 0.2) / 3.0
	if summary.MeanRegret < expectedMean-0.001 || summary.MeanRegret > expectedMean+0.001 {
		t.Errorf("expected mean regret ~%.4f, got %.4f", expectedMean, summary.MeanRegret)
	}

	// THEN max regret = 0.5
	if summary.MaxRegret != 0.5 {
		t.Errorf("expected max regret 0.5, got %.4f", summary.MaxRegret)
	}
}

func TestSummarize_Sequencing_CountsAndSaving(t *testing.T) {
	// GIVEN two optimized windows and one fallback
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordSequencing(SequencingRecord{Optimized: true, CostBefore: 100, CostAfter: 80})
	st.RecordSequencing(SequencingRecord{Optimized: true, CostBefore: 50, CostAfter: 50})
	st.RecordSequencing(SequencingRecord{Optimized: false, Reason: "timeout"})

	// WHEN summarized
	summary := Summarize(st)

	// THEN windows split 2/1 and the mean saving is 10 s
	if summary.Windows != 3 || summary.OptimizedWindows != 2 || summary.FallbackWindows != 1 {
		t.Errorf("got windows=%d optimized=%d fallback=%d", summary.Windows, summary.OptimizedWindows, summary.FallbackWindows)
	}
	if summary.MeanCostSaving != 10 {
		t.Errorf("expected mean saving 10, got %v", summary.MeanCostSaving)
	}
}
