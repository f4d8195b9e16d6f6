// Package workload provides the stochastic traffic primitives of the yard
// model: inter-arrival samplers for exogenous container arrivals and
// departures, and count samplers for the import boxes unloaded per vessel call.
package workload

import (
	"fmt"
	"math"
)

// ArrivalSpec configures an inter-event time process.
// Empty Process means "poisson".
type ArrivalSpec struct {
	Process string   `yaml:"process" json:"process"`
	CV      *float64 `yaml:"cv,omitempty" json:"cv,omitempty"`
}

// CountSpec configures a per-call count distribution.
type CountSpec struct {
	Type  string          `yaml:"type" json:"type"`                       // "poisson", "constant", "empirical"
	Mean  float64         `yaml:"mean,omitempty" json:"mean,omitempty"`   // poisson mean, or the constant value
	PMF   map[int]float64 `yaml:"pmf,omitempty" json:"pmf,omitempty"`     // empirical count -> probability
	Value int             `yaml:"value,omitempty" json:"value,omitempty"` // constant count
}

// Valid value registries.
var (
	validArrivalProcesses = map[string]bool{
		"": true, "poisson": true, "gamma": true, "weibull": true, "constant": true,
	}
	validCountTypes = map[string]bool{
		"poisson": true, "constant": true, "empirical": true,
	}
)

// Validate checks the process name and its CV.
func (s ArrivalSpec) Validate() error {
	if !validArrivalProcesses[s.Process] {
		return fmt.Errorf("unknown arrival process %q; valid: poisson, gamma, weibull, constant", s.Process)
	}
	if s.CV != nil {
		if err := validateFinitePositive("cv", *s.CV); err != nil {
			return err
		}
		if s.Process == "weibull" && (*s.CV < 0.01 || *s.CV > 10.4) {
			return fmt.Errorf("weibull CV must be in [0.01, 10.4], got %f", *s.CV)
		}
	}
	return nil
}

// Validate checks the count distribution type and its parameters.
func (s CountSpec) Validate() error {
	if !validCountTypes[s.Type] {
		return fmt.Errorf("unknown count distribution %q; valid: poisson, constant, empirical", s.Type)
	}
	switch s.Type {
	case "poisson":
		if err := validateFinitePositive("mean", s.Mean); err != nil {
			return err
		}
	case "constant":
		if s.Value < 0 {
			return fmt.Errorf("constant count must be non-negative, got %d", s.Value)
		}
	case "empirical":
		if len(s.PMF) == 0 {
			return fmt.Errorf("empirical count distribution needs a non-empty pmf")
		}
		total := 0.0
		for k, p := range s.PMF {
			if k < 0 {
				return fmt.Errorf("empirical pmf count must be non-negative, got %d", k)
			}
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("empirical pmf probability for %d must be finite and non-negative, got %f", k, p)
			}
			total += p
		}
		if total <= 0 {
			return fmt.Errorf("empirical pmf probabilities sum to zero")
		}
	}
	return nil
}

func validateFinitePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be a finite positive number, got %f", name, v)
	}
	return nil
}
