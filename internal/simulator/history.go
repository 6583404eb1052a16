package simulator

import (
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// History synthesis parameters
const (
	HistoryInterval   = 5 * time.Minute
	ActiveProbability = 0.85
)

// Synthesize generates a chart series for a room covering hours before now,
// oldest first. Each point draws its own activity flag and does not follow the
// occupancy rotation.
func Synthesize(p catalog.RoomProfile, hours int, now time.Time, rng Rand) []models.HistoryPoint {
	total := hours * 60 / int(HistoryInterval/time.Minute)
	if total <= 0 {
		return []models.HistoryPoint{}
	}

	points := make([]models.HistoryPoint, 0, total)
	for i := 0; i < total; i++ {
		at := now.Add(-HistoryInterval * time.Duration(total-i))
		active := rng.Float64() < ActiveProbability

		power := RoomPower(p, active, rng)
		voltage := Voltage(rng)

		points = append(points, models.HistoryPoint{
			Timestamp: at,
			Power:     Round2(power),
			Current:   Round2(Current(power, voltage)),
			Voltage:   Round2(voltage),
			IsActive:  active,
		})
	}
	return points
}
