package sim

import "math"

// TravelModel computes crane move durations in seconds.
// Each horizontal axis follows a trapezoidal speed profile (accelerate, cruise,
// decelerate) and the two axes are traversed one after the other. Vertical
// motion always goes through the hoist reference height.
type TravelModel struct {
	ax, ay, az float64
	vx, vy, vz float64
	hoist      float64
	slotWidth  float64
	slotLength float64
	tierHeight float64
}

// NewTravelModel builds a TravelModel from validated crane kinematics.
func NewTravelModel(cfg CraneConfig) TravelModel {
	return TravelModel{
		ax: cfg.Ax, ay: cfg.Ay, az: cfg.Az,
		vx: cfg.Vx, vy: cfg.Vy, vz: cfg.Vz,
		hoist:      cfg.Hoist,
		slotWidth:  cfg.SlotWidth,
		slotLength: cfg.SlotLength,
		tierHeight: cfg.TierHeight,
	}
}

// Restore is the empty-spreader trolley+gantry move between two points.
func (t TravelModel) Restore(from, to Coord) float64 {
	return axisTime(math.Abs(float64(from.X-to.X))*t.slotWidth, t.vx, t.ax) +
		axisTime(math.Abs(float64(from.Y-to.Y))*t.slotLength, t.vy, t.ay)
}

// Stack is a loaded move: horizontal travel plus a hoist/lower cycle from
// height z0 at the origin to height z1 at the destination (metres).
// The vertical term is counted twice, once to grab and once to release.
func (t TravelModel) Stack(from Coord, z0 float64, to Coord, z1 float64) float64 {
	return t.Restore(from, to) + 2*t.vertical(z0, z1)
}

// StackHeight converts a stack occupancy to the spreader height in metres.
func (t TravelModel) StackHeight(tiers int) float64 {
	return float64(tiers) * t.tierHeight
}

func (t TravelModel) vertical(z0, z1 float64) float64 {
	return axisTime(math.Abs(t.hoist-z0), t.vz, t.az) + axisTime(math.Abs(z1-t.hoist), t.vz, t.az)
}

// axisTime is the duration of a rest-to-rest move of d metres with top speed
// v and acceleration a. Short moves never reach v: the profile is triangular.
func axisTime(d, v, a float64) float64 {
	if d > v*v/a {
		return v/a + d/v
	}
	return 2 * math.Sqrt(d/a)
}

// === Tick conversion ===

const (
	TicksPerSecond = int64(1_000_000)
	TicksPerHour   = 3600 * TicksPerSecond
)

// SecondsToTicks converts a duration in seconds to ticks, rounding to the nearest tick.
func SecondsToTicks(s float64) int64 {
	return int64(math.Round(s * float64(TicksPerSecond)))
}

// HoursToTicks converts a duration in hours to ticks, rounding to the nearest tick.
func HoursToTicks(h float64) int64 {
	return int64(math.Round(h * float64(TicksPerHour)))
}

// TicksToHours converts ticks to fractional hours.
func TicksToHours(t int64) float64 {
	return float64(t) / float64(TicksPerHour)
}
