package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

type railTable struct{}

func (railTable) IsCompatible(engineType, trackType catalog.RailType) bool {
	return catalog.IsCompatibleRail(engineType, trackType)
}

func TestBelongsInSourceList(t *testing.T) {
	rails := railTable{}
	loco := &catalog.EngineModel{ID: 1, Category: catalog.Train, RailType: catalog.Rail}
	elLoco := &catalog.EngineModel{ID: 2, Category: catalog.Train, RailType: catalog.Electric}
	wagon := &catalog.EngineModel{ID: 3, Category: catalog.Train, RailType: catalog.Rail, Wagon: true}

	tests := []struct {
		name        string
		engine      *catalog.EngineModel
		showEngines bool
		railType    catalog.RailType
		want        bool
	}{
		{"locomotive on its own rail type", loco, true, catalog.Rail, true},
		{"locomotive on a compatible rail type", loco, true, catalog.Electric, false},
		{"electric locomotive on rail", elLoco, true, catalog.Rail, false},
		{"wagon in locomotive mode", wagon, true, catalog.Rail, false},
		{"locomotive in wagon mode", loco, false, catalog.Rail, false},
		{"wagon on its own rail type", wagon, false, catalog.Rail, true},
		{"wagon on a compatible rail type", wagon, false, catalog.Electric, true},
		{"wagon on monorail", wagon, false, catalog.Monorail, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BelongsInSourceList(tt.engine, tt.showEngines, tt.railType, rails))
		})
	}
}

func TestBelongsInTargetList(t *testing.T) {
	rails := railTable{}
	loco := &catalog.EngineModel{ID: 1, Category: catalog.Train, RailType: catalog.Rail}
	elLoco := &catalog.EngineModel{ID: 2, Category: catalog.Train, RailType: catalog.Electric}
	mono := &catalog.EngineModel{ID: 3, Category: catalog.Train, RailType: catalog.Monorail}
	wagon := &catalog.EngineModel{ID: 4, Category: catalog.Train, RailType: catalog.Rail, Wagon: true}

	assert.True(t, BelongsInTargetList(loco, true, catalog.Rail, rails))
	assert.True(t, BelongsInTargetList(elLoco, true, catalog.Rail, rails), "electric runs on plain rail")
	assert.True(t, BelongsInTargetList(loco, true, catalog.Electric, rails), "steam runs on electrified rail")
	assert.False(t, BelongsInTargetList(mono, true, catalog.Rail, rails))
	assert.False(t, BelongsInTargetList(wagon, true, catalog.Rail, rails))
	assert.True(t, BelongsInTargetList(wagon, false, catalog.Electric, rails))
}

func TestEffectiveCargo(t *testing.T) {
	assert.Equal(t, catalog.InvalidCargo, EffectiveCargo(nil))

	noCapacity := &catalog.EngineModel{Category: catalog.Train, Cargo: catalog.Passengers, Capacity: 0}
	assert.Equal(t, catalog.InvalidCargo, EffectiveCargo(noCapacity))

	plane := &catalog.EngineModel{Category: catalog.Aircraft, Cargo: catalog.Mail, Capacity: 0}
	assert.Equal(t, catalog.Passengers, EffectiveCargo(plane))

	truck := &catalog.EngineModel{Category: catalog.Road, Cargo: catalog.Coal, Capacity: 20}
	assert.Equal(t, catalog.Coal, EffectiveCargo(truck))
}

func TestCargoCompatible(t *testing.T) {
	pax := &catalog.EngineModel{ID: 1, Category: catalog.Train, Cargo: catalog.Passengers, Capacity: 40, Refits: []catalog.CargoID{catalog.Passengers}}
	mail := &catalog.EngineModel{ID: 2, Category: catalog.Train, Cargo: catalog.Mail, Capacity: 30, Refits: []catalog.CargoID{catalog.Mail}}
	loco := &catalog.EngineModel{ID: 3, Category: catalog.Train}
	goods := &catalog.EngineModel{ID: 4, Category: catalog.Train, Cargo: catalog.Goods, Capacity: 30, Refits: []catalog.CargoID{catalog.Goods, catalog.Mail}}
	coal := &catalog.EngineModel{ID: 5, Category: catalog.Train, Cargo: catalog.Coal, Capacity: 30}
	flexible := &catalog.EngineModel{ID: 6, Category: catalog.Train, Cargo: catalog.Grain, Capacity: 30, Refits: []catalog.CargoID{catalog.Coal}}

	assert.True(t, CargoCompatible(pax, pax), "same cargo")
	assert.True(t, CargoCompatible(pax, loco), "no capacity on one side")
	assert.True(t, CargoCompatible(loco, mail), "no capacity on one side")
	assert.True(t, CargoCompatible(pax, nil), "no engine on one side")
	assert.False(t, CargoCompatible(pax, mail), "disjoint refits and no cross refit")
	assert.True(t, CargoCompatible(mail, goods), "refit masks intersect")
	assert.True(t, CargoCompatible(coal, flexible), "one side can refit to the other's cargo")
	assert.True(t, CargoCompatible(flexible, coal), "symmetric")
}
