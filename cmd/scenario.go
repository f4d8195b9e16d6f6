package cmd

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/jbbrd/DES-for-YB-operations/sim"
	"github.com/jbbrd/DES-for-YB-operations/sim/experiment"
)

//go:embed scenario.schema.json
var scenarioSchemaJSON string

const scenarioSchemaURL = "https://github.com/jbbrd/DES-for-YB-operations/scenario.schema.json"

var scenarioSchema = jsonschema.MustCompileString(scenarioSchemaURL, scenarioSchemaJSON)

// Scenario is the content of a scenario file: the simulation configuration,
// the experiment plan and an optional parameter sweep. Omitted fields keep
// the reference values.
type Scenario struct {
	Name       string `yaml:"name"`
	sim.Config `yaml:",inline"`
	Experiment experiment.Plan `yaml:"experiment"`
	Sweep      SweepSpec       `yaml:"sweep"`
}

// SweepSpec lists alternative values per parameter. The sweep visits their
// cartesian product; an empty list keeps the scenario value.
type SweepSpec struct {
	ArrivalRates   []float64 `yaml:"arrival_rates"`
	DepartureRates []float64 `yaml:"departure_rates"`
	Allocations    []string  `yaml:"allocations"`
	Sequencers     []string  `yaml:"sequencers"`
}

// SweepPoint is one configuration of a sweep.
type SweepPoint struct {
	Name   string
	Config sim.Config
}

// DefaultScenario returns the reference scenario and study plan.
func DefaultScenario() Scenario {
	cfg := sim.DefaultConfig()
	return Scenario{
		Name:       "reference",
		Config:     cfg,
		Experiment: experiment.DefaultPlan(cfg),
	}
}

// LoadScenario reads, validates and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario validates data against the scenario schema, then decodes it
// over the reference scenario with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	doc, err := jsonDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := scenarioSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	sc := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Config.Validate(); err != nil {
		return nil, err
	}
	sc.Experiment.Scenario = sc.Config
	return &sc, nil
}

// jsonDocument turns a YAML value into the JSON value model the schema
// validator expects.
func jsonDocument(v any) (any, error) {
	b, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, fmt.Errorf("convert scenario: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// stringKeys rewrites non-string mapping keys, such as the integer keys of an
// empirical pmf, as strings.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	default:
		return v
	}
}

// Points expands the sweep over the scenario configuration.
func (sc *Scenario) Points() []SweepPoint {
	base := sc.Config
	arrivals := orDefault(sc.Sweep.ArrivalRates, base.Traffic.ArrivalRate)
	departures := orDefault(sc.Sweep.DepartureRates, base.Traffic.DepartureRate)
	allocations := orDefault(sc.Sweep.Allocations, base.Policy.Allocation)
	sequencers := orDefault(sc.Sweep.Sequencers, base.Policy.Sequencer)

	var out []SweepPoint
	for _, a := range arrivals {
		for _, d := range departures {
			for _, alloc := range allocations {
				for _, seq := range sequencers {
					cfg := base
					cfg.Traffic.ArrivalRate = a
					cfg.Traffic.DepartureRate = d
					cfg.Policy.Allocation = alloc
					cfg.Policy.Sequencer = seq
					out = append(out, SweepPoint{Name: pointName(sc.Name, cfg), Config: cfg})
				}
			}
		}
	}
	return out
}

func orDefault[T any](values []T, def T) []T {
	if len(values) == 0 {
		return []T{def}
	}
	return values
}

func pointName(name string, cfg sim.Config) string {
	parts := []string{
		name,
		fmt.Sprintf("arr=%g", cfg.Traffic.ArrivalRate),
		fmt.Sprintf("dep=%g", cfg.Traffic.DepartureRate),
		"alloc=" + cfg.Policy.Allocation,
		"seq=" + cfg.Policy.Sequencer,
	}
	return strings.Join(parts, ",")
}
