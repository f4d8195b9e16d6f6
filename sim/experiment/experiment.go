// Package experiment drives independent simulation runs of one scenario:
// warm start, warm-up, batch means, replications and confidence intervals.
package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbbrd/DES-for-YB-operations/sim"
)

const tracerName = "github.com/jbbrd/DES-for-YB-operations/sim/experiment"

// ErrInvalidPlan is wrapped by every Plan validation failure.
var ErrInvalidPlan = errors.New("invalid experiment plan")

// Plan describes an experiment on one scenario. Durations are in hours.
type Plan struct {
	Scenario sim.Config `yaml:"-" json:"-"`

	// WarmStartHours > 0 first runs the scenario from its initial yard and
	// starts every replication from the resulting block.
	WarmStartHours float64 `yaml:"warm_start_hours" json:"warm_start_hours"`
	WarmUpHours    float64 `yaml:"warm_up_hours" json:"warm_up_hours"`
	RunHours       float64 `yaml:"run_hours" json:"run_hours"`
	Replications   int     `yaml:"replications" json:"replications"`

	// Batches > 0 splits the measured run into Batches windows of BatchHours
	// each and reports the mean utilization of every window.
	Batches    int     `yaml:"batches" json:"batches"`
	BatchHours float64 `yaml:"batch_hours" json:"batch_hours"`

	Confidence float64 `yaml:"confidence" json:"confidence"` // default 0.95
	// Precision is the target half-width used for RequiredReplications.
	Precision float64 `yaml:"precision" json:"precision"`
}

// DefaultPlan returns the reference study: a one-week warm start, two days of
// warm-up and twenty days of measurement over ten replications.
func DefaultPlan(cfg sim.Config) Plan {
	return Plan{
		Scenario:       cfg,
		WarmStartHours: 7 * 24,
		WarmUpHours:    2 * 24,
		RunHours:       10 * 2 * 24,
		Replications:   10,
		Confidence:     0.95,
		Precision:      0.05,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidPlan)
}

// Validate checks durations and counts. The scenario itself is validated by
// sim.NewSimulator.
func (p *Plan) Validate() error {
	if p.Replications < 1 {
		return invalid("replications must be >= 1, got %d", p.Replications)
	}
	if p.WarmStartHours < 0 || p.WarmUpHours < 0 || p.RunHours < 0 {
		return invalid("durations must be non-negative")
	}
	if p.Batches < 0 {
		return invalid("batches must be >= 0, got %d", p.Batches)
	}
	if p.Batches > 0 && p.BatchHours <= 0 {
		return invalid("batch_hours must be > 0 when batches is set, got %v", p.BatchHours)
	}
	if p.Batches == 0 && p.RunHours <= 0 {
		return invalid("run_hours must be > 0, got %v", p.RunHours)
	}
	if p.Confidence != 0 && (p.Confidence <= 0 || p.Confidence >= 1) {
		return invalid("confidence must be in (0,1), got %v", p.Confidence)
	}
	return nil
}

func (p *Plan) level() float64 {
	if p.Confidence == 0 {
		return 0.95
	}
	return p.Confidence
}

// Replication is the outcome of one independent run.
type Replication struct {
	Index int   `json:"index"`
	Seed  int64 `json:"seed"`
	// Utilization is the replication average: the mean utilization sample of
	// the measured run, or the mean of the batch values in batch mode.
	Utilization float64   `json:"utilization"`
	Batches     []float64 `json:"batches,omitempty"`
	// Summary covers the measured run, or only the last window in batch mode.
	Summary sim.KPISummary `json:"summary"`
}

// Result aggregates the replications of a plan.
type Result struct {
	Replications []Replication `json:"replications"`
	Utilization  Interval      `json:"utilization"`
	LeadTime     Interval      `json:"lead_time_h"`
	// EnsembleBatches is the per-batch average across replications, used to
	// read off the warm-up length.
	EnsembleBatches []float64 `json:"ensemble_batches,omitempty"`
	// Required is the replication count reaching Plan.Precision on utilization.
	Required int `json:"required_replications,omitempty"`
}

// Runner executes plans. The zero value is ready to use.
type Runner struct {
	// Tracer receives one span per replication; defaults to the global provider.
	Tracer trace.Tracer
	// Options returns extra simulator options for replication i.
	Options func(i int) []sim.SimulatorOption
	// OnReplication observes every finished replication before its simulator
	// is dropped. A non-nil error aborts the experiment.
	OnReplication func(r Replication, s *sim.Simulator) error
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return otel.Tracer(tracerName)
}

// WarmStart runs cfg for the given number of hours and returns the final block
// content, ready for Config.InitialYard.
func WarmStart(ctx context.Context, cfg sim.Config, hours float64) ([][]sim.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	s.Run(sim.HoursToTicks(hours))
	logrus.Infof("Warm start done after %.1f h: %d containers in the block", hours, s.Yard.Count())
	return s.FinalYard(), nil
}

// Run executes every replication of p with seeds 0..Replications-1.
// Cancellation is checked between replications and between batches.
func (r *Runner) Run(ctx context.Context, p Plan) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	initial := p.Scenario.InitialYard
	if p.WarmStartHours > 0 {
		yard, err := WarmStart(ctx, p.Scenario, p.WarmStartHours)
		if err != nil {
			return nil, fmt.Errorf("warm start: %w", err)
		}
		initial = yard
	}

	res := &Result{}
	var prev []float64
	for i := 0; i < p.Replications; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := r.replicate(ctx, p, i, initial, prev)
		if err != nil {
			return nil, fmt.Errorf("replication %d: %w", i, err)
		}
		prev = rep.Batches
		res.Replications = append(res.Replications, rep)
	}

	utilization := make([]float64, len(res.Replications))
	lead := make([]float64, len(res.Replications))
	for i, rep := range res.Replications {
		utilization[i] = rep.Utilization
		lead[i] = rep.Summary.MeanLeadTime
	}
	res.Utilization = ConfidenceInterval(utilization, p.level())
	res.LeadTime = ConfidenceInterval(lead, p.level())
	res.Required = RequiredReplications(utilization, p.level(), p.Precision)
	if p.Batches > 0 {
		res.EnsembleBatches = ensemble(res.Replications, p.Batches)
	}
	logrus.Infof("Experiment done: %d replications, utilization %s", len(res.Replications), res.Utilization)
	return res, nil
}

func (r *Runner) replicate(ctx context.Context, p Plan, i int, initial [][]sim.Container, prev []float64) (rep Replication, err error) {
	cfg := p.Scenario
	cfg.Seed = int64(i)
	cfg.InitialYard = initial

	ctx, span := r.tracer().Start(ctx, "experiment/replication", trace.WithAttributes(
		attribute.Int("replication", i),
		attribute.Int64("seed", cfg.Seed),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var opts []sim.SimulatorOption
	if r.Options != nil {
		opts = r.Options(i)
	}
	s, err := sim.NewSimulator(cfg, opts...)
	if err != nil {
		return rep, err
	}
	rep = Replication{Index: i, Seed: cfg.Seed}

	if p.WarmUpHours > 0 {
		s.WarmUp(sim.HoursToTicks(p.WarmUpHours))
	}
	if p.Batches > 0 {
		rep.Batches, err = runBatches(ctx, s, p, prev)
		if err != nil {
			return rep, err
		}
		rep.Utilization = sim.CalculateMean(rep.Batches)
	} else {
		s.Run(sim.HoursToTicks(p.RunHours))
		rep.Utilization = sim.CalculateMean(s.Metrics.Utilization)
	}
	rep.Summary = s.Metrics.Summary(s.Clock)

	span.SetAttributes(
		attribute.Float64("utilization", rep.Utilization),
		attribute.Int("archived", rep.Summary.Archived),
		attribute.Int("discarded", rep.Summary.Discarded),
		attribute.Int("occupancy", s.Yard.Count()),
	)
	if r.OnReplication != nil {
		if err = r.OnReplication(rep, s); err != nil {
			return rep, err
		}
	}
	logrus.Infof("Replication %d done: utilization %.4f, %d archived, %d discarded",
		i, rep.Utilization, rep.Summary.Archived, rep.Summary.Discarded)
	return rep, nil
}

// runBatches measures consecutive windows of the run. A window without any
// utilization sample repeats the previous window, or the same window of the
// previous replication for the first one.
func runBatches(ctx context.Context, s *sim.Simulator, p Plan, prev []float64) ([]float64, error) {
	out := make([]float64, p.Batches)
	for b := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.ResetMeasurement()
		s.Run(sim.HoursToTicks(p.BatchHours))
		switch {
		case len(s.Metrics.Utilization) > 0:
			out[b] = sim.CalculateMean(s.Metrics.Utilization)
		case b > 0:
			out[b] = out[b-1]
		case len(prev) > 0:
			out[b] = prev[0]
		}
	}
	return out, nil
}

func ensemble(reps []Replication, batches int) []float64 {
	out := make([]float64, batches)
	for b := range out {
		for _, rep := range reps {
			out[b] += rep.Batches[b]
		}
		out[b] /= float64(len(reps))
	}
	return out
}
