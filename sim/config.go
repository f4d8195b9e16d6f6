package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jbbrd/DES-for-YB-operations/sim/workload"
)

// ErrInvalidConfig is wrapped by every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// YardConfig groups the block geometry.
type YardConfig struct {
	X int `yaml:"x" json:"x"` // slots across the block (must be > 0)
	Y int `yaml:"y" json:"y"` // bays along the block (must be > 0, multiple of the vessel count)
	Z int `yaml:"z" json:"z"` // maximum stack height (must be > 0)
}

// CraneConfig groups the crane kinematics. Accelerations are in m/s², speeds in m/s.
type CraneConfig struct {
	Ax         float64 `yaml:"ax" json:"ax"`
	Ay         float64 `yaml:"ay" json:"ay"`
	Az         float64 `yaml:"az" json:"az"`
	Vx         float64 `yaml:"vx" json:"vx"`
	Vy         float64 `yaml:"vy" json:"vy"`
	Vz         float64 `yaml:"vz" json:"vz"`
	Hoist      float64 `yaml:"hoist_height" json:"hoist_height"` // spreader reference height (m)
	SlotWidth  float64 `yaml:"slot_width" json:"slot_width"`     // metres per slot along x (default 2.849)
	SlotLength float64 `yaml:"slot_length" json:"slot_length"`   // metres per bay along y (default 6.546)
	TierHeight float64 `yaml:"tier_height" json:"tier_height"`   // metres per stacked container (default 2.395)
}

// TrafficConfig groups the stochastic traffic parameters.
// A zero arrival or departure rate disables that process.
type TrafficConfig struct {
	ArrivalRate             float64              `yaml:"arrival_rate" json:"arrival_rate"`     // exogenous container arrivals per hour
	DepartureRate           float64              `yaml:"departure_rate" json:"departure_rate"` // exogenous container departures per hour
	ArrivalProcess          workload.ArrivalSpec `yaml:"arrival_process" json:"arrival_process"`
	DepartureProcess        workload.ArrivalSpec `yaml:"departure_process" json:"departure_process"`
	VesselIntervals         []float64            `yaml:"vessel_intervals" json:"vessel_intervals"` // hours between vessel v and the next call; len = vessel count
	FirstVessel             time.Duration        `yaml:"first_vessel" json:"first_vessel"`         // delay of the first vessel call (default 1s)
	ImportCount             workload.CountSpec   `yaml:"import_count" json:"import_count"`         // import boxes unloaded per call
	TransshipmentProportion float64              `yaml:"transshipment_proportion" json:"transshipment_proportion"`
	// Manual disables every stochastic process; jobs arrive through InjectJob only.
	Manual bool `yaml:"manual" json:"manual"`
}

// TopologyConfig groups the partition of stacking groups across vessels.
type TopologyConfig struct {
	Groups           int     `yaml:"groups" json:"groups"`                       // total stacking groups, multiple of the vessel count
	ImportProportion float64 `yaml:"import_proportion" json:"import_proportion"` // share of each vessel's groups reserved for imports
}

// PolicyConfig groups the allocation and sequencing policy selection.
type PolicyConfig struct {
	Allocation       string        `yaml:"allocation" json:"allocation"`             // "random" (default), "incremental", "decremental", "shortest"
	Sequencer        string        `yaml:"sequencer" json:"sequencer"`               // "due-time" (default), "windowed"
	WindowSize       int           `yaml:"window_size" json:"window_size"`           // jobs per optimizer window (windowed only)
	OptimizerTimeout time.Duration `yaml:"optimizer_timeout" json:"optimizer_timeout"` // per-window budget (0 = unbounded)
	RandomRetries    int           `yaml:"random_retries" json:"random_retries"`     // redraws before random allocation gives up
}

// Config is everything NewSimulator needs.
type Config struct {
	Yard     YardConfig     `yaml:"yard" json:"yard"`
	Crane    CraneConfig    `yaml:"crane" json:"crane"`
	Traffic  TrafficConfig  `yaml:"traffic" json:"traffic"`
	Topology TopologyConfig `yaml:"topology" json:"topology"`
	Policy   PolicyConfig   `yaml:"policy" json:"policy"`
	Seed     int64          `yaml:"seed" json:"seed"`

	// InitialYard holds one container list per slot index, bottom first.
	// Empty means the run starts with an empty block.
	InitialYard [][]Container `yaml:"-" json:"-"`
	// RecordYardHistory keeps a full snapshot of the block at every idle transition.
	RecordYardHistory bool `yaml:"record_yard_history" json:"record_yard_history"`
}

// ValidAllocationStrategies is the set of recognized allocation strategy names.
var ValidAllocationStrategies = map[string]bool{"": true, "random": true, "incremental": true, "decremental": true, "shortest": true}

// ValidSequencers is the set of recognized queue sequencer names.
var ValidSequencers = map[string]bool{"": true, "due-time": true, "windowed": true}

// DefaultConfig returns the reference scenario: an 8x40x4 block served by four
// vessels calling every 42 hours.
func DefaultConfig() Config {
	return Config{
		Yard: YardConfig{X: 8, Y: 40, Z: 4},
		Crane: CraneConfig{
			Ax: 0.5, Ay: 1, Az: 0.5,
			Vx: 1, Vy: 4, Vz: 0.8,
			Hoist:      13,
			SlotWidth:  2.849,
			SlotLength: 6.546,
			TierHeight: 2.395,
		},
		Traffic: TrafficConfig{
			ArrivalRate:             1 / 0.15,
			DepartureRate:           1 / 1.5,
			ArrivalProcess:          workload.ArrivalSpec{Process: "poisson"},
			DepartureProcess:        workload.ArrivalSpec{Process: "poisson"},
			VesselIntervals:         []float64{42, 42, 42, 42},
			FirstVessel:             time.Second,
			ImportCount:             workload.CountSpec{Type: "poisson", Mean: 22},
			TransshipmentProportion: 0.9,
		},
		Topology: TopologyConfig{Groups: 200, ImportProportion: 0.1},
		Policy: PolicyConfig{
			Allocation:       "random",
			Sequencer:        "due-time",
			WindowSize:       5,
			OptimizerTimeout: 2 * time.Second,
			RandomRetries:    200,
		},
	}
}

// Vessels returns the number of vessels in the schedule.
func (c *Config) Vessels() int {
	return len(c.Traffic.VesselIntervals)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}

// Validate checks geometry, kinematics, traffic, topology and policy names.
// The initial yard is checked by NewSimulator once the topology is known.
func (c *Config) Validate() error {
	y := c.Yard
	if y.X <= 0 || y.Y <= 0 || y.Z <= 0 {
		return invalid("yard dimensions must be positive, got %dx%dx%d", y.X, y.Y, y.Z)
	}

	k := c.Crane
	for name, v := range map[string]float64{
		"ax": k.Ax, "ay": k.Ay, "az": k.Az, "vx": k.Vx, "vy": k.Vy, "vz": k.Vz,
		"slot_width": k.SlotWidth, "slot_length": k.SlotLength, "tier_height": k.TierHeight,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return invalid("crane %s must be a positive finite number, got %v", name, v)
		}
	}
	if k.Hoist < float64(y.Z)*k.TierHeight {
		return invalid("hoist height %.3f m is below a full stack (%d x %.3f m)", k.Hoist, y.Z, k.TierHeight)
	}

	t := c.Traffic
	if t.ArrivalRate < 0 || t.DepartureRate < 0 {
		return invalid("arrival and departure rates must be non-negative")
	}
	if err := t.ArrivalProcess.Validate(); err != nil {
		return invalid("arrival process: %v", err)
	}
	if err := t.DepartureProcess.Validate(); err != nil {
		return invalid("departure process: %v", err)
	}
	if err := t.ImportCount.Validate(); err != nil {
		return invalid("import count: %v", err)
	}
	n := c.Vessels()
	if n == 0 {
		return invalid("at least one vessel interval is required")
	}
	for v, h := range t.VesselIntervals {
		if !(h > 0) {
			return invalid("vessel %d interval must be positive, got %v", v, h)
		}
	}
	if t.FirstVessel < 0 {
		return invalid("first vessel delay must be non-negative")
	}
	if t.TransshipmentProportion < 0 || t.TransshipmentProportion > 1 {
		return invalid("transshipment proportion must be in [0,1], got %v", t.TransshipmentProportion)
	}

	if y.Y%n != 0 {
		return invalid("yard length %d is not divisible by the vessel count %d", y.Y, n)
	}
	g := c.Topology
	if g.Groups <= 0 || g.Groups%n != 0 {
		return invalid("group count %d must be a positive multiple of the vessel count %d", g.Groups, n)
	}
	perVessel := g.Groups / n
	imports := importGroupsPerVessel(g.ImportProportion, perVessel)
	if imports < 1 || imports > perVessel-1 {
		return invalid("import proportion %v leaves %d import groups out of %d per vessel; need at least one of each class",
			g.ImportProportion, imports, perVessel)
	}

	p := c.Policy
	if !ValidAllocationStrategies[p.Allocation] {
		return invalid("unknown allocation strategy %q", p.Allocation)
	}
	if !ValidSequencers[p.Sequencer] {
		return invalid("unknown sequencer %q", p.Sequencer)
	}
	if p.Sequencer == "windowed" && (p.WindowSize < 2 || p.WindowSize > MaxOptimizerLegs) {
		return invalid("window size must be in [2,%d], got %d", MaxOptimizerLegs, p.WindowSize)
	}
	if p.RandomRetries < 0 {
		return invalid("random retries must be non-negative, got %d", p.RandomRetries)
	}
	if p.OptimizerTimeout < 0 {
		return invalid("optimizer timeout must be non-negative")
	}

	if len(c.InitialYard) != 0 && len(c.InitialYard) != y.X*y.Y {
		return invalid("initial yard has %d stacks, want %d", len(c.InitialYard), y.X*y.Y)
	}
	return nil
}

func importGroupsPerVessel(proportion float64, perVessel int) int {
	return int(math.RoundToEven(proportion * float64(perVessel)))
}
