package models

import (
	"time"
)

// Room status labels
const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// RoomReading represents a single simulated power reading for one room
type RoomReading struct {
	RoomID     string    `json:"room_id"`
	Floor      int       `json:"floor"`
	Power      float64   `json:"power"`
	Current    float64   `json:"current"`
	Voltage    float64   `json:"voltage"`
	IsActive   bool      `json:"is_active"`
	Status     string    `json:"status"`
	CourseCode *string   `json:"course_code"`
	CourseName *string   `json:"course_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// BuildingSnapshot represents readings for every room taken at one instant
type BuildingSnapshot struct {
	Rooms        []RoomReading `json:"rooms"`
	TotalPower   float64       `json:"total_power"`
	ActiveRooms  int           `json:"active_rooms"`
	TotalRooms   int           `json:"total_rooms"`
	OfflineRooms []string      `json:"offline_rooms"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HistoryPoint represents one synthesized point of a room's power history
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Power     float64   `json:"power"`
	Current   float64   `json:"current"`
	Voltage   float64   `json:"voltage"`
	IsActive  bool      `json:"is_active"`
}

// EnergySummary represents estimated daily energy figures for a set of rooms
type EnergySummary struct {
	Rooms       int     `json:"rooms"`
	DailyEnergy float64 `json:"daily_energy"`
	DailyCost   float64 `json:"daily_cost"`
	CO2Saved    float64 `json:"co2_saved"`
}

// StoredReading represents a row of the energy_readings table
type StoredReading struct {
	ID          int64     `json:"id"`
	TickID      string    `json:"tick_id"`
	RoomID      string    `json:"room_id"`
	Timestamp   time.Time `json:"timestamp"`
	Power       float64   `json:"power"`
	Current     float64   `json:"current"`
	Voltage     float64   `json:"voltage"`
	KWh         float64   `json:"kwh"`
	IsScheduled bool      `json:"is_scheduled"`
	Course      *string   `json:"course"`
	Status      string    `json:"status"`
}
