package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyEnergyScenario(t *testing.T) {
	kwh := DailyEnergyKWh(r1Profile())
	assert.Equal(t, 18.74, kwh)
	assert.Equal(t, 159.29, DailyCost(kwh))
	// 18.74 * 0.71 = 13.3054
	assert.Equal(t, 13.31, CO2Saved(kwh))
}

func TestDailyEnergyIsDeterministic(t *testing.T) {
	for _, p := range testRooms(40) {
		assert.Equal(t, DailyEnergyKWh(p), DailyEnergyKWh(p))
	}
}

func TestBuildingDailyEnergy(t *testing.T) {
	b := testBuilding(1)

	kwh, cost, ok := b.DailyEnergy("101")
	assert.True(t, ok)
	assert.Equal(t, 18.74, kwh)
	assert.Equal(t, 159.29, cost)

	_, _, ok = b.DailyEnergy("nope")
	assert.False(t, ok)
}

func TestEnergySummary(t *testing.T) {
	b := testBuilding(1)

	all := b.EnergySummary(nil)
	assert.Equal(t, 40, all.Rooms)

	sum := 0.0
	for _, p := range b.Catalog().Rooms() {
		sum += DailyEnergyKWh(p)
	}
	assert.Equal(t, Round2(sum), all.DailyEnergy)
	assert.Equal(t, DailyCost(sum), all.DailyCost)
	assert.Equal(t, CO2Saved(sum), all.CO2Saved)

	one := b.EnergySummary(func(id string) bool { return id == "101" })
	assert.Equal(t, 1, one.Rooms)
	assert.Equal(t, 18.74, one.DailyEnergy)
	assert.Equal(t, 159.29, one.DailyCost)

	none := b.EnergySummary(func(string) bool { return false })
	assert.Equal(t, 0, none.Rooms)
	assert.Zero(t, none.DailyEnergy)
}
