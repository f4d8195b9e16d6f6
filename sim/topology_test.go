package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopology_DefaultPartition(t *testing.T) {
	// GIVEN the reference scenario: 40 bays, 200 groups, 4 vessels, 10% imports
	cfg := DefaultConfig()

	topo := NewTopology(&cfg)

	require.Len(t, topo.Vessels, 4)
	for v, ves := range topo.Vessels {
		assert.Equal(t, v*10+1, ves.FirstBay)
		assert.Equal(t, (v+1)*10, ves.LastBay)
		assert.Equal(t, (ves.FirstBay-1)*8, ves.FirstSlot)
		assert.Equal(t, ves.LastBay*8-1, ves.LastSlot)
		assert.Len(t, ves.ImportGroups, 5)
		assert.Len(t, ves.ExportGroups, 45)
		assert.Equal(t, v*50+1, ves.ImportGroups[0], "import groups open the vessel's range")
		assert.Equal(t, 42*TicksPerHour, ves.Interval)
	}
}

func TestTopology_GroupLookups(t *testing.T) {
	cfg := smallConfig()
	topo := NewTopology(&cfg)

	tests := []struct {
		group  int
		vessel int
		class  CargoClass
	}{
		{1, 0, Import},
		{2, 0, Export},
		{3, 1, Import},
		{4, 1, Export},
	}
	for _, tt := range tests {
		v, ok := topo.VesselOfGroup(tt.group)
		require.True(t, ok)
		assert.Equal(t, tt.vessel, v, "group %d", tt.group)
		assert.Equal(t, tt.class, topo.ClassOfGroup(tt.group), "group %d", tt.group)
	}
	_, ok := topo.VesselOfGroup(5)
	assert.False(t, ok)
}

func TestVessel_Contains(t *testing.T) {
	cfg := smallConfig()
	topo := NewTopology(&cfg)

	assert.True(t, topo.Vessels[0].Contains(Coord{X: 2, Y: 2}))
	assert.False(t, topo.Vessels[0].Contains(Coord{X: 1, Y: 3}))
	assert.True(t, topo.Vessels[1].Contains(Coord{X: 1, Y: 3}))
}

func TestTopology_String(t *testing.T) {
	cfg := smallConfig()
	assert.Equal(t, "topology{vessels=2 groups=4}", NewTopology(&cfg).String())
}
