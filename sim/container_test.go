package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_StringAndParse(t *testing.T) {
	tests := []struct {
		op   Operation
		code string
	}{
		{OpStoreFromSea, "SS"},
		{OpStoreFromLand, "SL"},
		{OpRetrieveToSea, "RS"},
		{OpRetrieveToLand, "RL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.op.String())
			got, err := ParseOperation(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.op, got)
		})
	}

	_, err := ParseOperation("XS")
	assert.Error(t, err)
}

func TestContainer_InterfacePoints(t *testing.T) {
	tests := []struct {
		name     string
		op       Operation
		transfer Coord
		pickup   Coord
		dropoff  Coord
	}{
		{"storage from sea", OpStoreFromSea, Coord{X: 0, Y: 5}, Coord{X: 0, Y: 5}, Coord{X: 3, Y: 5}},
		{"storage from land", OpStoreFromLand, Coord{X: 3, Y: 0}, Coord{X: 3, Y: 0}, Coord{X: 3, Y: 5}},
		{"retrieval to sea", OpRetrieveToSea, Coord{X: 0, Y: 5}, Coord{X: 3, Y: 5}, Coord{X: 0, Y: 5}},
		{"retrieval to land", OpRetrieveToLand, Coord{X: 3, Y: 0}, Coord{X: 3, Y: 5}, Coord{X: 3, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a container allocated to slot (3,5)
			c := NewContainer(1, 2, 0, Export, tt.op, 0)
			c.Slot = Coord{X: 3, Y: 5}

			// THEN the crane meets the vehicle on the operation's side
			assert.Equal(t, tt.transfer, c.TransferPoint())
			assert.Equal(t, tt.pickup, c.PickupPoint())
			assert.Equal(t, tt.dropoff, c.DropoffPoint())
		})
	}
}

func TestNewContainer_UnsetTimes(t *testing.T) {
	c := NewContainer(7, 3, 1, Import, OpStoreFromSea, 42)

	assert.Equal(t, int64(42), c.Arrival)
	assert.Equal(t, int64(42), c.Due)
	assert.Equal(t, Pending, c.Location)
	assert.Equal(t, Unallocated, c.Slot)
	assert.False(t, c.Slot.IsSlot())
	for name, v := range map[string]int64{
		"YardEntry": c.YardEntry, "YardExit": c.YardExit, "Departure": c.Departure,
		"Waiting": c.Waiting, "Dwelling": c.Dwelling, "LeadTime": c.LeadTime, "DeferredDue": c.DeferredDue,
	} {
		assert.Equal(t, int64(NotSet), v, name)
	}
}

func TestContainer_JSONUsesReadableCodes(t *testing.T) {
	c := NewContainer(9, 4, 1, Export, OpRetrieveToLand, 0)
	c.Location = Archived

	data, err := json.Marshal(c)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"op":"RL"`)
	assert.Contains(t, string(data), `"class":"export"`)
	assert.Contains(t, string(data), `"location":"archived"`)

	var back Container
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *c, back)
}
