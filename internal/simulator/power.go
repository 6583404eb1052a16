package simulator

import (
	"math"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
)

// Kind identifies an equipment type
type Kind string

// Equipment kinds, in the order they are summed for an active room
const (
	KindAC        Kind = "ac"
	KindFan       Kind = "fan"
	KindLight     Kind = "light"
	KindProjector Kind = "projector"
	KindPC        Kind = "pc"
)

// Kinds lists every equipment kind
var Kinds = []Kind{KindAC, KindFan, KindLight, KindProjector, KindPC}

// Electrical model constants (Bangladesh 220V supply)
const (
	BaseVoltage      = 220.0
	VoltageVariation = 5.0
	NoiseWatts       = 20.0

	MinStandbyPower = 10.0
	MinActivePower  = 100.0

	standbyPCFraction    = 0.05
	standbyLightFraction = 0.3
)

// Fluctuation returns the maximum relative deviation for an equipment kind.
func Fluctuation(kind Kind) float64 {
	switch kind {
	case KindAC:
		return 0.15
	case KindFan:
		return 0.08
	case KindLight:
		return 0.05
	default:
		return 0.10
	}
}

// EquipmentPower returns the nominal draw of count devices perturbed by the
// kind's symmetric fluctuation.
func EquipmentPower(kind Kind, baseWattage float64, count int, rng Rand) float64 {
	power := baseWattage * float64(count)
	return power + power*Fluctuation(kind)*uniform(rng, -1, 1)
}

// RoomPower returns the instantaneous draw of a room. Inactive rooms draw
// standby power for their PCs and one light; active rooms run everything.
func RoomPower(p catalog.RoomProfile, active bool, rng Rand) float64 {
	if !active {
		standby := p.Wattage.PC * float64(p.Equipment.PC) * standbyPCFraction
		standby += p.Wattage.Light * 1 * standbyLightFraction
		return math.Max(MinStandbyPower, standby+uniform(rng, -NoiseWatts, NoiseWatts))
	}

	total := 0.0
	for _, kind := range Kinds {
		wattage, count := load(p, kind)
		total += EquipmentPower(kind, wattage, count, rng)
	}
	total += uniform(rng, -NoiseWatts, NoiseWatts)

	return math.Max(MinActivePower, total)
}

// Voltage returns a supply voltage within BaseVoltage ± VoltageVariation.
func Voltage(rng Rand) float64 {
	return BaseVoltage + uniform(rng, -VoltageVariation, VoltageVariation)
}

// Current derives amps from watts and volts.
func Current(power, voltage float64) float64 {
	if voltage == 0 {
		return 0
	}
	return power / voltage
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func load(p catalog.RoomProfile, kind Kind) (float64, int) {
	switch kind {
	case KindAC:
		return p.Wattage.AC, p.Equipment.AC
	case KindFan:
		return p.Wattage.Fan, p.Equipment.Fan
	case KindLight:
		return p.Wattage.Light, p.Equipment.Light
	case KindProjector:
		return p.Wattage.Projector, p.Equipment.Projector
	case KindPC:
		return p.Wattage.PC, p.Equipment.PC
	}
	return 0, 0
}
