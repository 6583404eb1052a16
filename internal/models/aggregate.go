package models

import (
	"time"
)

// StatusCount represents aggregated count of readings by room status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// FloorConsumption represents aggregated power draw for one floor
type FloorConsumption struct {
	Floor        int     `json:"floor"`
	TotalPower   float64 `json:"total_power"`
	RoomCount    int     `json:"room_count"`
	ReadingCount int     `json:"reading_count"`
	AveragePower float64 `json:"average_power"`
	MaxPower     float64 `json:"max_power"`
}

// TimeSeriesPoint represents a single aggregated time series data point
type TimeSeriesPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	TotalPower   float64   `json:"total_power"`
	ReadingCount int       `json:"reading_count"`
	MaxPower     float64   `json:"max_power"`
	MinPower     float64   `json:"min_power"`
	AvgPower     float64   `json:"avg_power"`
}
