package simulator

import (
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
)

// Daily estimate assumptions and Bangladesh tariff/emission factors
const (
	ActiveHoursPerDay  = 8
	StandbyHoursPerDay = 16
	StandbyFraction    = 0.05

	TariffBDTPerKWh = 8.5
	CO2KgPerKWh     = 0.71
)

// DailyEnergyKWh estimates a room's daily consumption: 8 hours at rated power
// and 16 hours at 5% standby. It draws no randomness.
func DailyEnergyKWh(p catalog.RoomProfile) float64 {
	active := p.RatedPower()
	standby := active * StandbyFraction
	return Round2((active*ActiveHoursPerDay + standby*StandbyHoursPerDay) / 1000)
}

// DailyCost converts kWh to BDT at the fixed tariff.
func DailyCost(kwh float64) float64 {
	return Round2(kwh * TariffBDTPerKWh)
}

// CO2Saved converts kWh to kilograms of CO2 at the grid emission factor.
func CO2Saved(kwh float64) float64 {
	return Round2(kwh * CO2KgPerKWh)
}
