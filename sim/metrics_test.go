package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccupancyCounter_TimeWeightedAverage(t *testing.T) {
	// GIVEN 2 containers for 10 ticks, then 4 for 30 ticks
	o := OccupancyCounter{count: 2}
	o.Observe(10, 2)

	// THEN the average over 40 ticks is (20+120)/40
	assert.InDelta(t, 3.5, o.Average(40), 1e-12)
	assert.Equal(t, 4, o.Count())

	// WHEN the counter is reset
	o.Reset(40)
	o.Observe(50, -4)

	// THEN only the new window counts
	assert.InDelta(t, 2.0, o.Average(60), 1e-12)
	assert.Equal(t, 0.0, (&OccupancyCounter{}).Average(0))
}

func TestMetrics_SummaryInHours(t *testing.T) {
	// GIVEN two archived containers, one that bypassed waiting
	m := NewMetrics(0)
	a := NewContainer(1, 1, 0, Import, OpRetrieveToSea, 0)
	a.Waiting, a.Dwelling, a.LeadTime = TicksPerHour, 2*TicksPerHour, 4*TicksPerHour
	b := NewContainer(2, 1, 0, Import, OpRetrieveToLand, 0)
	b.Dwelling, b.LeadTime = 4*TicksPerHour, 6*TicksPerHour
	m.Archive = []*Container{b, a}
	m.Utilization = []float64{0.2, 0.4}
	m.Discarded = []*Container{NewContainer(3, 2, 0, Export, OpStoreFromLand, 0)}

	s := m.Summary(TicksPerHour)

	assert.InDelta(t, 0.3, s.Utilization, 1e-12)
	assert.Equal(t, 2, s.Archived)
	assert.Equal(t, 1, s.Discarded)
	assert.InDelta(t, 1.0, s.MeanWaiting, 1e-12, "unset waiting times are skipped")
	assert.InDelta(t, 3.0, s.MeanDwelling, 1e-12)
	assert.InDelta(t, 5.0, s.MeanLeadTime, 1e-12)
	assert.InDelta(t, 5.0, s.P50LeadTime, 1e-12)
	assert.InDelta(t, 5.9, s.P95LeadTime, 1e-12)
}

func TestMetrics_ResetKeepsDiscards(t *testing.T) {
	m := NewMetrics(3)
	m.Archive = []*Container{NewContainer(1, 1, 0, Import, OpRetrieveToSea, 0)}
	m.Discarded = []*Container{NewContainer(2, 1, 0, Import, OpStoreFromSea, 0)}
	m.Utilization = []float64{0.5}
	m.JobArrivals, m.ContainerArrivals, m.CraneMoves = 4, 9, 12

	m.Reset(100)

	assert.Empty(t, m.Archive)
	assert.Empty(t, m.Utilization)
	assert.Len(t, m.Discarded, 1)
	assert.Zero(t, m.JobArrivals+m.ContainerArrivals+m.CraneMoves)
	assert.Equal(t, 3, m.Occupancy.Count())
	assert.InDelta(t, 3.0, m.Occupancy.Average(200), 1e-12)
}

func TestKPISummary_Print(t *testing.T) {
	// GIVEN a summary without archived containers
	var buf bytes.Buffer
	KPISummary{JobArrivals: 3, CraneMoves: 7, Utilization: 0.25}.Print(&buf)

	// THEN counters are printed and time KPIs are omitted
	out := buf.String()
	assert.Contains(t, out, "Job Arrivals         : 3\n")
	assert.Contains(t, out, "Crane Moves          : 7\n")
	assert.Contains(t, out, "Crane Utilization    : 0.2500\n")
	assert.NotContains(t, out, "Lead Time")

	// WHEN a container was archived
	buf.Reset()
	KPISummary{Archived: 1, MeanLeadTime: 1.5}.Print(&buf)

	// THEN the time KPIs appear
	assert.Contains(t, buf.String(), "Average Lead Time    : 1.5000 h\n")
}
