// Tracks simulation-wide and per-container performance metrics such as:
// crane utilization, container waiting, dwelling and lead times, yard occupancy.

package sim

import (
	"fmt"
	"io"
	"slices"
)

// MetricsRecorder receives KPI observations while the simulation runs.
// A nil recorder on the simulator disables reporting.
type MetricsRecorder interface {
	ObserveMove(phase string, seconds float64)
	ObserveUtilization(u float64)
	ObserveLeadTime(hours float64)
	SetQueueDepth(n int)
	SetYardOccupancy(n int)
	IncJobArrival(kind string, containers int)
	IncDiscarded()
}

// YardSnapshot is the block content at one idle transition.
type YardSnapshot struct {
	Clock  int64      `json:"clock"`
	Stacks [][]uint64 `json:"stacks"` // container IDs per slot index, bottom first
}

// Metrics aggregates statistics about the simulation
// for final reporting. Everything except Discarded is cleared by a warm-up.
type Metrics struct {
	Utilization []float64    // one sample per idle transition, in [0,1]
	Archive     []*Container // containers that left the block, in departure order
	Discarded   []*Container // containers no slot could be found for
	YardHistory []YardSnapshot

	JobArrivals       int // vessel calls + exogenous jobs
	ContainerArrivals int // containers concerned by those jobs
	CraneMoves        int // completed pickups and drop-offs

	Occupancy OccupancyCounter
}

// NewMetrics creates a metrics tracker starting at clock 0 with count containers in the block.
func NewMetrics(count int) *Metrics {
	return &Metrics{Occupancy: OccupancyCounter{count: count}}
}

// Reset clears the KPIs gathered so far, keeping the discard list and the current occupancy.
func (m *Metrics) Reset(now int64) {
	m.Utilization = nil
	m.Archive = nil
	m.YardHistory = nil
	m.JobArrivals = 0
	m.ContainerArrivals = 0
	m.CraneMoves = 0
	m.Occupancy.Reset(now)
}

// OccupancyCounter integrates the number of containers in the block over time.
type OccupancyCounter struct {
	origin int64
	last   int64
	count  int
	area   float64 // container-ticks since origin, up to last
}

// Observe changes the count by delta at now.
func (o *OccupancyCounter) Observe(now int64, delta int) {
	o.area += float64(o.count) * float64(now-o.last)
	o.last = now
	o.count += delta
}

// Count returns the current number of containers.
func (o *OccupancyCounter) Count() int { return o.count }

// Average returns the time-weighted mean count over [origin, now], or the
// current count when no time has elapsed.
func (o *OccupancyCounter) Average(now int64) float64 {
	if now <= o.origin {
		return float64(o.count)
	}
	area := o.area + float64(o.count)*float64(now-o.last)
	return area / float64(now-o.origin)
}

// Reset restarts the integration at now.
func (o *OccupancyCounter) Reset(now int64) {
	o.origin, o.last, o.area = now, now, 0
}

// KPISummary condenses the metrics of one run. Durations are in hours.
type KPISummary struct {
	Utilization       float64 `json:"utilization"`
	Archived          int     `json:"archived"`
	Discarded         int     `json:"discarded"`
	MeanWaiting       float64 `json:"mean_waiting_h"`
	MeanDwelling      float64 `json:"mean_dwelling_h"`
	MeanLeadTime      float64 `json:"mean_lead_time_h"`
	P50LeadTime       float64 `json:"p50_lead_time_h"`
	P95LeadTime       float64 `json:"p95_lead_time_h"`
	MeanOccupancy     float64 `json:"mean_occupancy"`
	JobArrivals       int     `json:"job_arrivals"`
	ContainerArrivals int     `json:"container_arrivals"`
	CraneMoves        int     `json:"crane_moves"`
}

// Summary computes the KPI summary at now.
func (m *Metrics) Summary(now int64) KPISummary {
	s := KPISummary{
		Utilization:       CalculateMean(m.Utilization),
		Archived:          len(m.Archive),
		Discarded:         len(m.Discarded),
		MeanOccupancy:     m.Occupancy.Average(now),
		JobArrivals:       m.JobArrivals,
		ContainerArrivals: m.ContainerArrivals,
		CraneMoves:        m.CraneMoves,
	}
	var waiting, dwelling, lead []float64
	for _, c := range m.Archive {
		if c.Waiting != NotSet {
			waiting = append(waiting, TicksToHours(c.Waiting))
		}
		if c.Dwelling != NotSet {
			dwelling = append(dwelling, TicksToHours(c.Dwelling))
		}
		lead = append(lead, TicksToHours(c.LeadTime))
	}
	s.MeanWaiting = CalculateMean(waiting)
	s.MeanDwelling = CalculateMean(dwelling)
	s.MeanLeadTime = CalculateMean(lead)
	if len(lead) > 0 {
		slices.Sort(lead)
		s.P50LeadTime = CalculatePercentile(lead, 50)
		s.P95LeadTime = CalculatePercentile(lead, 95)
	}
	return s
}

// Print writes the KPI report shown at the end of a run.
func (s KPISummary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Job Arrivals         : %d\n", s.JobArrivals)
	fmt.Fprintf(w, "Container Arrivals   : %d\n", s.ContainerArrivals)
	fmt.Fprintf(w, "Archived Containers  : %d\n", s.Archived)
	fmt.Fprintf(w, "Discarded Containers : %d\n", s.Discarded)
	fmt.Fprintf(w, "Crane Moves          : %d\n", s.CraneMoves)
	fmt.Fprintf(w, "Crane Utilization    : %.4f\n", s.Utilization)
	fmt.Fprintf(w, "Average Occupancy    : %.2f containers\n", s.MeanOccupancy)
	if s.Archived > 0 {
		fmt.Fprintf(w, "Average Waiting      : %.4f h\n", s.MeanWaiting)
		fmt.Fprintf(w, "Average Dwelling     : %.4f h\n", s.MeanDwelling)
		fmt.Fprintf(w, "Average Lead Time    : %.4f h\n", s.MeanLeadTime)
		fmt.Fprintf(w, "P95 Lead Time        : %.4f h\n", s.P95LeadTime)
	}
}
