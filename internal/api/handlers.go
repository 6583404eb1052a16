package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/monitoring"
)

// Query parameter bounds
const (
	DefaultHistoryHours = 24
	MaxHistoryHours     = 168
	DefaultReadingLimit = 60
	MaxReadingLimit     = 1000
)

const historyTimeLayout = "2006-01-02 15:04:05"

type roomStatus struct {
	models.RoomReading
	MonitoringEnabled bool `json:"monitoring_enabled"`
}

type buildingStatusResponse struct {
	Success            bool         `json:"success"`
	Timestamp          time.Time    `json:"timestamp"`
	MonitoringEnabled  bool         `json:"monitoring_enabled"`
	TotalPower         float64      `json:"total_power"`
	ActiveRooms        int          `json:"active_rooms"`
	TotalRooms         int          `json:"total_rooms"`
	TotalRoomsBuilding int          `json:"total_rooms_building"`
	OfflineRooms       []string     `json:"offline_rooms"`
	DailyEnergy        float64      `json:"daily_energy"`
	DailyCost          float64      `json:"daily_cost"`
	CO2Saved           float64      `json:"co2_saved"`
	Rooms              []roomStatus `json:"rooms"`
}

type roomStatusResponse struct {
	Success bool `json:"success"`
	models.RoomReading
	DailyEnergy       float64 `json:"daily_energy"`
	DailyCost         float64 `json:"daily_cost"`
	MonitoringEnabled bool    `json:"monitoring_enabled"`
}

type historyPoint struct {
	Timestamp string  `json:"timestamp"`
	Power     float64 `json:"power"`
	Current   float64 `json:"current"`
	Voltage   float64 `json:"voltage"`
	IsActive  bool    `json:"is_active"`
}

type historyResponse struct {
	Success    bool           `json:"success"`
	RoomID     string         `json:"room_id"`
	DataPoints int            `json:"data_points"`
	Data       []historyPoint `json:"data"`
}

type scheduleResponse struct {
	Success    bool           `json:"success"`
	RoomID     string         `json:"room_id"`
	CourseCode *string        `json:"course_code"`
	CourseName *string        `json:"course_name"`
	Schedule   []catalog.Slot `json:"schedule"`
}

type configResponse struct {
	Success   bool              `json:"success"`
	RoomID    string            `json:"room_id"`
	Floor     int               `json:"floor"`
	Capacity  int               `json:"capacity"`
	Equipment catalog.Equipment `json:"equipment"`
	Wattage   catalog.Wattage   `json:"wattage"`
}

type readingsResponse struct {
	Success  bool                   `json:"success"`
	RoomID   string                 `json:"room_id"`
	Count    int                    `json:"count"`
	Readings []models.StoredReading `json:"readings"`
}

type toggleResponse struct {
	Success           bool   `json:"success"`
	RoomID            string `json:"room_id,omitempty"`
	MonitoringEnabled bool   `json:"monitoring_enabled"`
	TotalMonitored    *int   `json:"total_monitored,omitempty"`
	Message           string `json:"message"`
}

// buildingStatus assembles the building view shared by the status endpoint
// and the live stream. Counts and energy figures cover monitored rooms only.
func (s *Server) buildingStatus(ctx context.Context) (buildingStatusResponse, error) {
	enabled, err := s.flags.Enabled(ctx)
	if err != nil {
		return buildingStatusResponse{}, fmt.Errorf("read monitoring flag: %w", err)
	}
	states, err := s.flags.RoomStates(ctx, s.building.Catalog().IDs())
	if err != nil {
		return buildingStatusResponse{}, fmt.Errorf("read room flags: %w", err)
	}

	snap := s.building.Snapshot(s.clock())
	summary := s.building.EnergySummary(func(id string) bool { return states[id] })

	resp := buildingStatusResponse{
		Success:            true,
		Timestamp:          snap.Timestamp,
		MonitoringEnabled:  enabled,
		TotalPower:         snap.TotalPower,
		TotalRooms:         monitoring.CountEnabled(states),
		TotalRoomsBuilding: snap.TotalRooms,
		OfflineRooms:       snap.OfflineRooms,
		DailyEnergy:        summary.DailyEnergy,
		DailyCost:          summary.DailyCost,
		CO2Saved:           summary.CO2Saved,
		Rooms:              make([]roomStatus, 0, len(snap.Rooms)),
	}
	for _, r := range snap.Rooms {
		on := states[r.RoomID]
		if on && r.IsActive {
			resp.ActiveRooms++
		}
		resp.Rooms = append(resp.Rooms, roomStatus{RoomReading: r, MonitoringEnabled: on})
	}
	return resp, nil
}

func (s *Server) handleBuildingStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.buildingStatus(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondWithJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	reading, ok := s.building.RoomReading(id, s.clock())
	if !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}
	kwh, cost, _ := s.building.DailyEnergy(id)
	enabled, err := s.flags.RoomEnabled(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}

	respondWithJSON(w, s.logger, http.StatusOK, roomStatusResponse{
		Success:           true,
		RoomReading:       reading,
		DailyEnergy:       kwh,
		DailyCost:         cost,
		MonitoringEnabled: enabled,
	})
}

func (s *Server) handleRoomHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.building.Catalog().Room(id); !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}
	hours, apiErr := intParam(r, "hours", DefaultHistoryHours, MaxHistoryHours)
	if apiErr != nil {
		respondWithError(w, s.logger, *apiErr)
		return
	}

	points, ok := s.building.History(id, hours, s.clock())
	if !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}

	data := make([]historyPoint, len(points))
	for i, p := range points {
		data[i] = historyPoint{
			Timestamp: p.Timestamp.In(s.config.Location).Format(historyTimeLayout),
			Power:     p.Power,
			Current:   p.Current,
			Voltage:   p.Voltage,
			IsActive:  p.IsActive,
		}
	}
	respondWithJSON(w, s.logger, http.StatusOK, historyResponse{
		Success:    true,
		RoomID:     id,
		DataPoints: len(data),
		Data:       data,
	})
}

func (s *Server) handleRoomSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.building.Catalog().Room(id); !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}

	resp := scheduleResponse{Success: true, RoomID: id, Schedule: []catalog.Slot{}}
	if entry, ok := s.building.Catalog().Schedule(id); ok {
		resp.CourseCode = entry.CourseCode
		resp.CourseName = entry.CourseName
		if len(entry.Slots) > 0 {
			resp.Schedule = entry.Slots
		}
	}
	respondWithJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Server) handleRoomConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.building.Catalog().Room(id)
	if !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}
	respondWithJSON(w, s.logger, http.StatusOK, configResponse{
		Success:   true,
		RoomID:    id,
		Floor:     p.Floor,
		Capacity:  p.Capacity,
		Equipment: p.Equipment,
		Wattage:   p.Wattage,
	})
}

func (s *Server) handleRoomReadings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.building.Catalog().Room(id); !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}
	limit, apiErr := intParam(r, "limit", DefaultReadingLimit, MaxReadingLimit)
	if apiErr != nil {
		respondWithError(w, s.logger, *apiErr)
		return
	}
	if s.readings == nil {
		respondWithError(w, s.logger, NewAPIError(ErrorCodeServiceUnavailable, "Reading storage is not configured", http.StatusServiceUnavailable))
		return
	}

	rows, err := s.readings.Latest(r.Context(), id, limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondWithJSON(w, s.logger, http.StatusOK, readingsResponse{
		Success:  true,
		RoomID:   id,
		Count:    len(rows),
		Readings: rows,
	})
}

func (s *Server) handleToggleMonitoring(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.flags.ToggleGlobal(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	status := "PAUSED"
	if enabled {
		status = "RESUMED"
	}
	s.logger.Info("global monitoring toggled", "status", status)

	respondWithJSON(w, s.logger, http.StatusOK, toggleResponse{
		Success:           true,
		MonitoringEnabled: enabled,
		Message:           "Global monitoring " + status,
	})
}

func (s *Server) handleToggleRoomMonitoring(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.building.Catalog().Room(id); !ok {
		respondWithError(w, s.logger, errRoomNotFound)
		return
	}

	enabled, err := s.flags.ToggleRoom(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	states, err := s.flags.RoomStates(r.Context(), s.building.Catalog().IDs())
	if err != nil {
		s.internalError(w, err)
		return
	}
	monitored := monitoring.CountEnabled(states)

	status := "OFF"
	if enabled {
		status = "ON"
	}
	s.logger.Info("room monitoring toggled", "room_id", id, "status", status,
		"monitored", monitored, "total", s.building.Catalog().Len())

	respondWithJSON(w, s.logger, http.StatusOK, toggleResponse{
		Success:           true,
		RoomID:            id,
		MonitoringEnabled: enabled,
		TotalMonitored:    &monitored,
		Message:           fmt.Sprintf("Room %s monitoring %s", id, status),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	respondWithError(w, s.logger, NewAPIError(ErrorCodeInternalServerError, "Internal server error", http.StatusInternalServerError))
}

// intParam parses a positive integer query parameter no larger than upper
func intParam(r *http.Request, name string, def, upper int) (int, *APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > upper {
		apiErr := NewAPIError(ErrorCodeValidationFailed,
			fmt.Sprintf("%s must be an integer between 1 and %d", name, upper), http.StatusBadRequest)
		return 0, &apiErr
	}
	return v, nil
}
