package sim

import "fmt"

// NotSet marks a timestamp or duration that has not been recorded yet.
const NotSet int64 = -1

// Coord addresses a yard slot by its two horizontal coordinates.
// Slots are 1-based: X in [1, YardX] across the block, Y in [1, YardY] along it.
// Row X=0 is the sea-side interface, column Y=0 the land-side interface.
type Coord struct {
	X int
	Y int
}

var (
	// Unallocated is the sentinel slot of a container that has not been placed yet.
	// It coincides with the crane's home corner, which is never a storage slot.
	Unallocated = Coord{}
	// AllocationFailed is the sentinel returned when no slot could be found.
	AllocationFailed = Coord{X: -1, Y: -1}
)

// IsSlot reports whether c designates a real yard slot (not a sentinel).
func (c Coord) IsSlot() bool {
	return c.X > 0 && c.Y > 0
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Direction tells whether a job moves a container into or out of the yard.
type Direction int

const (
	Store Direction = iota
	Retrieve
)

// Side is the vehicle interface a job picks up from or drops off to.
type Side int

const (
	Sea Side = iota
	Land
)

// Operation is the crane job attached to a container.
type Operation struct {
	Direction Direction
	Side      Side
}

var (
	OpStoreFromSea    = Operation{Direction: Store, Side: Sea}
	OpStoreFromLand   = Operation{Direction: Store, Side: Land}
	OpRetrieveToSea   = Operation{Direction: Retrieve, Side: Sea}
	OpRetrieveToLand  = Operation{Direction: Retrieve, Side: Land}
	validOperationStr = map[string]Operation{
		"SS": OpStoreFromSea, "SL": OpStoreFromLand, "RS": OpRetrieveToSea, "RL": OpRetrieveToLand,
	}
)

// String returns the two-letter code: S/R for the direction, S/L for the side.
func (o Operation) String() string {
	var b [2]byte
	switch o.Direction {
	case Store:
		b[0] = 'S'
	case Retrieve:
		b[0] = 'R'
	default:
		panic(fmt.Sprintf("unhandled direction %d", o.Direction))
	}
	switch o.Side {
	case Sea:
		b[1] = 'S'
	case Land:
		b[1] = 'L'
	default:
		panic(fmt.Sprintf("unhandled side %d", o.Side))
	}
	return string(b[:])
}

// ParseOperation decodes a two-letter operation code ("SS", "SL", "RS", "RL").
func ParseOperation(s string) (Operation, error) {
	op, ok := validOperationStr[s]
	if !ok {
		return Operation{}, fmt.Errorf("unknown operation code %q", s)
	}
	return op, nil
}

func (o Operation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// CargoClass distinguishes import boxes (sea to land) from export and
// transshipment boxes (bound to a vessel).
type CargoClass int

const (
	Import CargoClass = iota
	Export
)

func (c CargoClass) String() string {
	if c == Import {
		return "import"
	}
	return "export"
}

func (c CargoClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CargoClass) UnmarshalText(b []byte) error {
	switch string(b) {
	case "import":
		*c = Import
	case "export":
		*c = Export
	default:
		return fmt.Errorf("unknown cargo class %q", b)
	}
	return nil
}

// Location is where a container physically is.
// A container queued for retrieval is still Stored until the crane lifts it.
type Location int

const (
	Pending   Location = iota // created, waiting in the queue to be stored
	Stored                    // on a yard stack
	Carried                   // on the crane spreader
	Archived                  // left the system, terminal
	Discarded                 // no slot could be allocated, terminal
)

var locationNames = [...]string{"pending", "stored", "carried", "archived", "discarded"}

func (l Location) String() string {
	if int(l) < len(locationNames) {
		return locationNames[l]
	}
	return fmt.Sprintf("location(%d)", int(l))
}

func (l Location) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Location) UnmarshalText(b []byte) error {
	for i, n := range locationNames {
		if n == string(b) {
			*l = Location(i)
			return nil
		}
	}
	return fmt.Errorf("unknown location %q", b)
}

// Container is one physical box moving through the yard.
// All times are in ticks; unset values are NotSet.
type Container struct {
	ID     uint64     `json:"id"`
	Slot   Coord      `json:"slot"`
	Group  int        `json:"group"`
	Vessel int        `json:"vessel"`
	Class  CargoClass `json:"class"`
	Op     Operation  `json:"op"`
	Due    int64      `json:"due"` // scheduled handling time, the sequencing key

	Arrival   int64 `json:"arrival"`
	YardEntry int64 `json:"yard_entry"`
	YardExit  int64 `json:"yard_exit"`
	Departure int64 `json:"departure"`

	Waiting  int64 `json:"waiting"`   // storage pickup - arrival
	Dwelling int64 `json:"dwelling"`  // yard exit - yard entry
	LeadTime int64 `json:"lead_time"` // departure - arrival

	// DeferredDue is set when a retrieval was ordered while the container was
	// still waiting to be stored. It is consumed once, at stack drop-off.
	DeferredDue int64 `json:"deferred_due"`

	Location Location `json:"location"`
}

// NewContainer creates a container that arrived at the given tick.
func NewContainer(id uint64, group, vessel int, class CargoClass, op Operation, now int64) *Container {
	return &Container{
		ID:          id,
		Group:       group,
		Vessel:      vessel,
		Class:       class,
		Op:          op,
		Due:         now,
		Arrival:     now,
		YardEntry:   NotSet,
		YardExit:    NotSet,
		Departure:   NotSet,
		Waiting:     NotSet,
		Dwelling:    NotSet,
		LeadTime:    NotSet,
		DeferredDue: NotSet,
		Location:    Pending,
	}
}

// TransferPoint returns the vehicle-side interface point used by the
// container's operation: (x,0) on the land side, (0,y) on the sea side.
func (c *Container) TransferPoint() Coord {
	if c.Op.Side == Land {
		return Coord{X: c.Slot.X}
	}
	return Coord{Y: c.Slot.Y}
}

// PickupPoint is where the crane must go to start serving the container.
func (c *Container) PickupPoint() Coord {
	if c.Op.Direction == Store {
		return c.TransferPoint()
	}
	return c.Slot
}

// DropoffPoint is where the crane releases the container.
func (c *Container) DropoffPoint() Coord {
	if c.Op.Direction == Store {
		return c.Slot
	}
	return c.TransferPoint()
}

func (c *Container) String() string {
	return fmt.Sprintf("C%d[%s g%d v%d %s]", c.ID, c.Op, c.Group, c.Vessel, c.Slot)
}
