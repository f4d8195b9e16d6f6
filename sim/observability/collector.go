// Package observability exposes simulation KPIs as Prometheus metrics.
// YardCollector implements sim.MetricsRecorder; every method is safe on a nil
// receiver so callers can leave the collector unset.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jbbrd/DES-for-YB-operations/sim"
)

var _ sim.MetricsRecorder = (*YardCollector)(nil)

// YardCollector bundles the Prometheus metrics of one simulated block.
type YardCollector struct {
	gatherer prometheus.Gatherer

	Moves       *prometheus.HistogramVec
	LeadTime    prometheus.Histogram
	Utilization prometheus.Gauge
	QueueDepth  prometheus.Gauge
	Occupancy   prometheus.Gauge
	JobArrivals *prometheus.CounterVec
	Containers  *prometheus.CounterVec
	Discarded   prometheus.Counter
}

// NewYardCollector registers the yard metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice on the same registry
// reuses the existing collectors.
func NewYardCollector(reg prometheus.Registerer) (*YardCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	moves, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yard_crane_move_seconds",
		Help:    "Duration of crane moves in simulated seconds, labeled by phase.",
		Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
	}, []string{"phase"}), "yard_crane_move_seconds")
	if err != nil {
		return nil, err
	}
	lead, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "yard_container_lead_time_hours",
		Help:    "Time from arrival to departure of archived containers, in simulated hours.",
		Buckets: []float64{0.25, 0.5, 1, 2, 6, 12, 24, 48, 96, 168},
	}), "yard_container_lead_time_hours")
	if err != nil {
		return nil, err
	}
	utilization, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yard_crane_utilization",
		Help: "Busy share of the crane since the measurement origin, sampled at idle transitions.",
	}), "yard_crane_utilization")
	if err != nil {
		return nil, err
	}
	queue, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yard_queue_depth",
		Help: "Current number of crane jobs waiting in the pending queue.",
	}), "yard_queue_depth")
	if err != nil {
		return nil, err
	}
	occupancy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yard_occupancy",
		Help: "Current number of containers stored in the block.",
	}), "yard_occupancy")
	if err != nil {
		return nil, err
	}
	jobs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yard_job_arrivals_total",
		Help: "Total number of job arrivals, labeled by kind.",
	}, []string{"kind"}), "yard_job_arrivals_total")
	if err != nil {
		return nil, err
	}
	containers, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yard_job_containers_total",
		Help: "Total number of containers concerned by job arrivals, labeled by kind.",
	}, []string{"kind"}), "yard_job_containers_total")
	if err != nil {
		return nil, err
	}
	discarded, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yard_containers_discarded_total",
		Help: "Total number of containers no slot could be allocated to.",
	}), "yard_containers_discarded_total")
	if err != nil {
		return nil, err
	}

	return &YardCollector{
		gatherer:    gatherer,
		Moves:       moves,
		LeadTime:    lead,
		Utilization: utilization,
		QueueDepth:  queue,
		Occupancy:   occupancy,
		JobArrivals: jobs,
		Containers:  containers,
		Discarded:   discarded,
	}, nil
}

// Gatherer returns the registry the collector was registered against.
func (c *YardCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// WriteTextfile dumps the current metric values in the Prometheus text format,
// for the node exporter's textfile collector.
func (c *YardCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Gatherer())
}

func (c *YardCollector) ObserveMove(phase string, seconds float64) {
	if c == nil || c.Moves == nil {
		return
	}
	c.Moves.WithLabelValues(phase).Observe(seconds)
}

func (c *YardCollector) ObserveUtilization(u float64) {
	if c == nil || c.Utilization == nil {
		return
	}
	c.Utilization.Set(u)
}

func (c *YardCollector) ObserveLeadTime(hours float64) {
	if c == nil || c.LeadTime == nil {
		return
	}
	c.LeadTime.Observe(hours)
}

func (c *YardCollector) SetQueueDepth(n int) {
	if c == nil || c.QueueDepth == nil {
		return
	}
	c.QueueDepth.Set(float64(n))
}

func (c *YardCollector) SetYardOccupancy(n int) {
	if c == nil || c.Occupancy == nil {
		return
	}
	c.Occupancy.Set(float64(n))
}

func (c *YardCollector) IncJobArrival(kind string, containers int) {
	if c == nil {
		return
	}
	if c.JobArrivals != nil {
		c.JobArrivals.WithLabelValues(kind).Inc()
	}
	if c.Containers != nil {
		c.Containers.WithLabelValues(kind).Add(float64(containers))
	}
}

func (c *YardCollector) IncDiscarded() {
	if c == nil || c.Discarded == nil {
		return
	}
	c.Discarded.Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
