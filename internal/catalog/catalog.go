// Package catalog holds the static room equipment profiles and class
// schedules that the simulator reads. Both are loaded once at startup and
// never mutated afterwards.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrEmptyCatalog is returned when no rooms are configured
var ErrEmptyCatalog = errors.New("catalog: no rooms configured")

// Equipment holds the number of installed devices of each kind
type Equipment struct {
	AC        int `json:"ac"`
	Fan       int `json:"fan"`
	Light     int `json:"light"`
	Projector int `json:"projector"`
	PC        int `json:"pc"`
}

// Wattage holds the rated draw in watts of one device of each kind
type Wattage struct {
	AC        float64 `json:"ac"`
	Fan       float64 `json:"fan"`
	Light     float64 `json:"light"`
	Projector float64 `json:"projector"`
	PC        float64 `json:"pc"`
}

// RoomProfile describes a physical room and its equipment
type RoomProfile struct {
	ID        string    `json:"-"`
	Floor     int       `json:"floor"`
	Capacity  int       `json:"capacity"`
	Equipment Equipment `json:"equipment"`
	Wattage   Wattage   `json:"wattage"`
}

// RatedPower returns the draw in watts with every device running at its rating.
func (p RoomProfile) RatedPower() float64 {
	e, w := p.Equipment, p.Wattage
	return w.AC*float64(e.AC) +
		w.Fan*float64(e.Fan) +
		w.Light*float64(e.Light) +
		w.Projector*float64(e.Projector) +
		w.PC*float64(e.PC)
}

// Slot is one weekly class period
type Slot struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
	Type  string `json:"type,omitempty"`
}

// ScheduleEntry holds the course taught in a room. Course fields are nil when
// the source file leaves them out.
type ScheduleEntry struct {
	RoomID     string  `json:"-"`
	CourseCode *string `json:"course_code"`
	CourseName *string `json:"course_name"`
	Slots      []Slot  `json:"schedule"`
}

// Catalog is the read-only set of rooms in catalog order plus their schedules
type Catalog struct {
	rooms     []RoomProfile
	index     map[string]int
	schedules map[string]ScheduleEntry
}

// New builds a catalog from rooms in the given order. Schedules for unknown
// rooms are kept; lookups are by room id only.
func New(rooms []RoomProfile, schedules []ScheduleEntry) (*Catalog, error) {
	if len(rooms) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		rooms:     make([]RoomProfile, len(rooms)),
		index:     make(map[string]int, len(rooms)),
		schedules: make(map[string]ScheduleEntry, len(schedules)),
	}
	copy(c.rooms, rooms)

	for i, r := range c.rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: room at position %d has no id", i)
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room id %q", r.ID)
		}
		c.index[r.ID] = i
	}
	for _, s := range schedules {
		c.schedules[s.RoomID] = s
	}

	return c, nil
}

// Load reads the room configuration file and, if schedulePath is not empty,
// the schedule file. Room order follows the order of keys in the file.
func Load(roomPath, schedulePath string) (*Catalog, error) {
	data, err := os.ReadFile(roomPath)
	if err != nil {
		return nil, fmt.Errorf("read room config: %w", err)
	}
	ids, profiles, err := decodeOrdered[RoomProfile](data)
	if err != nil {
		return nil, fmt.Errorf("parse room config %s: %w", roomPath, err)
	}
	for i := range profiles {
		profiles[i].ID = ids[i]
	}

	var schedules []ScheduleEntry
	if schedulePath != "" {
		data, err := os.ReadFile(schedulePath)
		if err != nil {
			return nil, fmt.Errorf("read schedules: %w", err)
		}
		roomIDs, entries, err := decodeOrdered[ScheduleEntry](data)
		if err != nil {
			return nil, fmt.Errorf("parse schedules %s: %w", schedulePath, err)
		}
		for i := range entries {
			entries[i].RoomID = roomIDs[i]
		}
		schedules = entries
	}

	return New(profiles, schedules)
}

// Len returns the number of rooms
func (c *Catalog) Len() int {
	return len(c.rooms)
}

// Rooms returns a copy of all room profiles in catalog order
func (c *Catalog) Rooms() []RoomProfile {
	out := make([]RoomProfile, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// IDs returns all room ids in catalog order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.rooms))
	for i, r := range c.rooms {
		ids[i] = r.ID
	}
	return ids
}

// Room looks up a room profile by id
func (c *Catalog) Room(id string) (RoomProfile, bool) {
	i, ok := c.index[id]
	if !ok {
		return RoomProfile{}, false
	}
	return c.rooms[i], true
}

// Schedule looks up the schedule entry for a room
func (c *Catalog) Schedule(id string) (ScheduleEntry, bool) {
	s, ok := c.schedules[id]
	return s, ok
}

// ScheduledRooms returns how many catalog rooms have a schedule entry
func (c *Catalog) ScheduledRooms() int {
	n := 0
	for _, r := range c.rooms {
		if _, ok := c.schedules[r.ID]; ok {
			n++
		}
	}
	return n
}

// decodeOrdered decodes a JSON object of objects, keeping key order.
func decodeOrdered[T any](data []byte) ([]string, []T, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	var values []T
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}

		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("entry %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}
