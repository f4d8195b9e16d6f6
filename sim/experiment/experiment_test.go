package experiment

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jbbrd/DES-for-YB-operations/sim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// shortPlan is a three-replication study short enough for unit tests.
func shortPlan() Plan {
	p := DefaultPlan(sim.DefaultConfig())
	p.WarmStartHours = 0
	p.WarmUpHours = 12
	p.RunHours = 48
	p.Replications = 3
	return p
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Plan)
	}{
		{name: "no replications", modify: func(p *Plan) { p.Replications = 0 }},
		{name: "negative warm-up", modify: func(p *Plan) { p.WarmUpHours = -1 }},
		{name: "no run length", modify: func(p *Plan) { p.RunHours = 0 }},
		{name: "batches without length", modify: func(p *Plan) { p.Batches = 3 }},
		{name: "confidence out of range", modify: func(p *Plan) { p.Confidence = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := shortPlan()
			tt.modify(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}

	p := shortPlan()
	assert.NoError(t, p.Validate())
}

func TestRunner_OneSpanPerReplication(t *testing.T) {
	// GIVEN a runner tracing into an in-memory recorder
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	r := &Runner{Tracer: tp.Tracer(tracerName)}

	// WHEN a three-replication plan runs
	res, err := r.Run(context.Background(), shortPlan())
	require.NoError(t, err)

	// THEN every replication is seeded by its index and traced once
	require.Len(t, res.Replications, 3)
	spans := rec.Ended()
	require.Len(t, spans, 3)
	for i, rep := range res.Replications {
		assert.Equal(t, int64(i), rep.Seed)
		assert.GreaterOrEqual(t, rep.Utilization, 0.0)
		assert.LessOrEqual(t, rep.Utilization, 1.0)

		assert.Equal(t, "experiment/replication", spans[i].Name())
		assert.Contains(t, spans[i].Attributes(), attribute.Int64("seed", int64(i)))
	}
	assert.Equal(t, 3, res.Utilization.N)
	assert.Equal(t, 0.95, res.Utilization.Level)
}

func TestRunner_Deterministic(t *testing.T) {
	r := &Runner{}
	a, err := r.Run(context.Background(), shortPlan())
	require.NoError(t, err)
	b, err := r.Run(context.Background(), shortPlan())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunner_BatchMeans(t *testing.T) {
	// GIVEN a plan measuring four 6-hour windows per replication
	p := shortPlan()
	p.Replications = 2
	p.Batches = 4
	p.BatchHours = 6

	// WHEN it runs
	res, err := (&Runner{}).Run(context.Background(), p)
	require.NoError(t, err)

	// THEN each replication reports one value per window and the ensemble averages them
	require.Len(t, res.EnsembleBatches, 4)
	for b := range res.EnsembleBatches {
		want := (res.Replications[0].Batches[b] + res.Replications[1].Batches[b]) / 2
		assert.InDelta(t, want, res.EnsembleBatches[b], 1e-12)
	}
	for _, rep := range res.Replications {
		assert.Len(t, rep.Batches, 4)
		assert.InDelta(t, sim.CalculateMean(rep.Batches), rep.Utilization, 1e-12)
	}
}

func TestWarmStart_FillsTheBlock(t *testing.T) {
	// GIVEN the reference scenario run for three days from an empty block
	yard, err := WarmStart(context.Background(), sim.DefaultConfig(), 72)
	require.NoError(t, err)

	// THEN the final block seeds a new simulator with the same content
	count := 0
	for _, stack := range yard {
		count += len(stack)
	}
	assert.Positive(t, count)

	cfg := sim.DefaultConfig()
	cfg.InitialYard = yard
	s, err := sim.NewSimulator(cfg)
	require.NoError(t, err)
	assert.Equal(t, count, s.Yard.Count())
}

func TestRunner_WarmStartSharedByReplications(t *testing.T) {
	p := shortPlan()
	p.WarmStartHours = 24
	p.Replications = 2

	var initial []int
	r := &Runner{
		Options: func(i int) []sim.SimulatorOption {
			return []sim.SimulatorOption{sim.WithMetricsRecorder(&countingRecorder{onOccupancy: func(n int) {
				if len(initial) == i {
					initial = append(initial, n)
				}
			}})}
		},
	}
	_, err := r.Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, initial, 2)
	assert.Positive(t, initial[0])
	assert.Equal(t, initial[0], initial[1])
}

func TestRunner_StopsOnHookError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	r := &Runner{OnReplication: func(Replication, *sim.Simulator) error {
		calls++
		return boom
	}}

	_, err := r.Run(context.Background(), shortPlan())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Runner{}).Run(ctx, shortPlan())
	assert.ErrorIs(t, err, context.Canceled)
}

// countingRecorder forwards occupancy updates and ignores the rest.
type countingRecorder struct {
	onOccupancy func(n int)
}

func (r *countingRecorder) ObserveMove(string, float64) {}
func (r *countingRecorder) ObserveUtilization(float64)  {}
func (r *countingRecorder) ObserveLeadTime(float64)     {}
func (r *countingRecorder) SetQueueDepth(int)           {}
func (r *countingRecorder) SetYardOccupancy(n int)      { r.onOccupancy(n) }
func (r *countingRecorder) IncJobArrival(string, int)   {}
func (r *countingRecorder) IncDiscarded()               {}
