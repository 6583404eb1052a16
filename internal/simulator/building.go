package simulator

import (
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// Building composes the catalog, the occupancy rotation and the power model
// into per-room readings and building snapshots.
type Building struct {
	catalog   *catalog.Catalog
	occupancy *Occupancy
	rng       Rand
}

// NewBuilding creates a building aggregator
func NewBuilding(c *catalog.Catalog, occupancy *Occupancy, rng Rand) *Building {
	return &Building{
		catalog:   c,
		occupancy: occupancy,
		rng:       rng,
	}
}

// Catalog returns the room catalog
func (b *Building) Catalog() *catalog.Catalog {
	return b.catalog
}

// Occupancy returns the occupancy model
func (b *Building) Occupancy() *Occupancy {
	return b.occupancy
}

// RoomReading returns a fresh reading for one room. The second result is
// false when the room is not in the catalog.
func (b *Building) RoomReading(roomID string, now time.Time) (models.RoomReading, bool) {
	p, ok := b.catalog.Room(roomID)
	if !ok {
		return models.RoomReading{}, false
	}
	return b.reading(p, b.occupancy.IsActive(roomID, now), now), true
}

// Snapshot returns readings for every room in catalog order. All rooms are
// evaluated against the same offline set.
func (b *Building) Snapshot(now time.Time) models.BuildingSnapshot {
	state := b.occupancy.State(now)
	profiles := b.catalog.Rooms()

	snap := models.BuildingSnapshot{
		Rooms:        make([]models.RoomReading, 0, len(profiles)),
		TotalRooms:   len(profiles),
		OfflineRooms: state.Offline(),
		Timestamp:    now,
	}

	total := 0.0
	for _, p := range profiles {
		r := b.reading(p, state.IsActive(p.ID), now)
		snap.Rooms = append(snap.Rooms, r)
		total += r.Power
		if r.IsActive {
			snap.ActiveRooms++
		}
	}
	snap.TotalPower = Round2(total)

	return snap
}

// History synthesizes a chart series for one room.
func (b *Building) History(roomID string, hours int, now time.Time) ([]models.HistoryPoint, bool) {
	p, ok := b.catalog.Room(roomID)
	if !ok {
		return nil, false
	}
	return Synthesize(p, hours, now, b.rng), true
}

// DailyEnergy returns the daily kWh and cost estimate for one room.
func (b *Building) DailyEnergy(roomID string) (kwh float64, cost float64, ok bool) {
	p, ok := b.catalog.Room(roomID)
	if !ok {
		return 0, 0, false
	}
	kwh = DailyEnergyKWh(p)
	return kwh, DailyCost(kwh), true
}

// EnergySummary totals the daily estimate over the rooms accepted by include.
// A nil include accepts every room.
func (b *Building) EnergySummary(include func(roomID string) bool) models.EnergySummary {
	var summary models.EnergySummary
	total := 0.0
	for _, p := range b.catalog.Rooms() {
		if include != nil && !include(p.ID) {
			continue
		}
		total += DailyEnergyKWh(p)
		summary.Rooms++
	}

	summary.DailyEnergy = Round2(total)
	summary.DailyCost = DailyCost(total)
	summary.CO2Saved = CO2Saved(total)
	return summary
}

func (b *Building) reading(p catalog.RoomProfile, active bool, now time.Time) models.RoomReading {
	power := RoomPower(p, active, b.rng)
	voltage := Voltage(b.rng)

	r := models.RoomReading{
		RoomID:    p.ID,
		Floor:     p.Floor,
		Power:     Round2(power),
		Current:   Round2(Current(power, voltage)),
		Voltage:   Round2(voltage),
		IsActive:  active,
		Status:    models.StatusOffline,
		Timestamp: now,
	}
	if active {
		r.Status = models.StatusOnline
	}
	if s, ok := b.catalog.Schedule(p.ID); ok {
		r.CourseCode = cloneString(s.CourseCode)
		r.CourseName = cloneString(s.CourseName)
	}
	return r
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
